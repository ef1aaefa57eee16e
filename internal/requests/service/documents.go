package service

import (
	"context"

	enrichmentmodels "civicledger/internal/enrichment/models"
	dErrors "civicledger/pkg/domain-errors"
)

// FetchDocument looks up a stored document with its applicant and
// application, keyed by the document reference rather than a request id.
func (s *Service) FetchDocument(ctx context.Context, ref string) (details *enrichmentmodels.DocumentDetails, err error) {
	ctx, span := s.startSpan(ctx, "FetchDocument")
	defer func() { finishSpan(span, err) }()

	ref = trimmed(ref)
	if ref == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document reference is required")
	}
	details, err = s.enrichment.FetchEnrichment(ctx, ref)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "enrichment store unavailable")
	}
	return details, nil
}
