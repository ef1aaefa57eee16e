package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enrichmentModels "civicledger/internal/enrichment/models"
	enrichmentService "civicledger/internal/enrichment/service"
	"civicledger/internal/enrichment/sink"
	"civicledger/internal/enrichment/store"
	dErrors "civicledger/pkg/domain-errors"
)

func TestEnrichmentAdapter(t *testing.T) {
	ctx := context.Background()
	svc := newEnrichmentService(t)
	adapter := NewEnrichmentAdapter(svc)

	err := adapter.SaveEnrichment(ctx, enrichmentModels.Submission{
		RequestID:     "REQ-1",
		WalletAddress: "0xc1",
		FormFields:    map[string]string{"fullName": "Ada"},
		Attachments: []enrichmentModels.Attachment{
			{Field: "documents", FileName: "id.pdf", Content: []byte("%PDF-1.4 test")},
		},
	})
	require.NoError(t, err)

	apps, err := svc.ListApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	require.Len(t, apps[0].Documents, 1)

	details, err := adapter.FetchEnrichment(ctx, apps[0].Documents[0].URL)
	require.NoError(t, err)
	assert.Equal(t, "REQ-1", details.Application.RequestID)
	assert.Equal(t, "0xc1", details.Applicant.WalletAddress)
	assert.Equal(t, "Ada", details.Application.ApplicantName)

	_, err = adapter.FetchEnrichment(ctx, "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestEnrichmentAdapter_RequiresWallet(t *testing.T) {
	svc := newEnrichmentService(t)
	err := NewEnrichmentAdapter(svc).SaveEnrichment(context.Background(), enrichmentModels.Submission{RequestID: "REQ-1"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func newEnrichmentService(t *testing.T) *enrichmentService.Service {
	t.Helper()
	docs, err := sink.NewLocalDir(t.TempDir())
	require.NoError(t, err)
	return enrichmentService.New(store.NewInMemoryStore(), docs)
}
