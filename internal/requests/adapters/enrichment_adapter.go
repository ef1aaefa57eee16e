package adapters

import (
	"context"

	enrichmentModels "civicledger/internal/enrichment/models"
	enrichmentService "civicledger/internal/enrichment/service"
)

// EnrichmentAdapter satisfies the engine's enrichment port by calling the
// enrichment service in the same process. The HTTP client in
// internal/enrichment/client is the out-of-process equivalent.
type EnrichmentAdapter struct {
	enrichment *enrichmentService.Service
}

func NewEnrichmentAdapter(enrichment *enrichmentService.Service) *EnrichmentAdapter {
	return &EnrichmentAdapter{enrichment: enrichment}
}

// SaveEnrichment stores the application and its documents. The per-document
// records are dropped; the engine only needs to know whether the save held.
func (a *EnrichmentAdapter) SaveEnrichment(ctx context.Context, sub enrichmentModels.Submission) error {
	_, err := a.enrichment.Submit(ctx, sub)
	return err
}

func (a *EnrichmentAdapter) FetchEnrichment(ctx context.Context, documentRef string) (*enrichmentModels.DocumentDetails, error) {
	return a.enrichment.DocumentDetails(ctx, documentRef)
}
