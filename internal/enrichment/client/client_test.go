package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicledger/internal/enrichment/handler"
	"civicledger/internal/enrichment/models"
	"civicledger/internal/enrichment/service"
	"civicledger/internal/enrichment/store"
	dErrors "civicledger/pkg/domain-errors"
)

type refSink struct{ n int }

func (s *refSink) Put(context.Context, []byte) (string, error) {
	s.n++
	return "uploads/" + string(rune('a'+s.n-1)), nil
}

// newServer runs the real handler over an in-memory store so the client is
// exercised against the actual wire format.
func newServer(t *testing.T) (*httptest.Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	svc := service.New(st, &refSink{})
	r := chi.NewRouter()
	handler.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st
}

func TestClient_RoundTrip(t *testing.T) {
	srv, st := newServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	err = c.SaveEnrichment(ctx, models.Submission{
		RequestID:     "REQ-4",
		WalletAddress: "0xabc",
		ServiceID:     "passport",
		ServiceType:   "Passport Renewal",
		TxHash:        "0xfeed",
		FormFields:    map[string]string{"fullName": "Asha Rao", "phone": "555"},
		Attachments:   []models.Attachment{{FileName: "proof.pdf", Content: []byte("%PDF-1.4")}},
	})
	require.NoError(t, err)

	apps, err := st.ListApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "REQ-4", apps[0].RequestID)
	assert.Equal(t, "0xfeed", apps[0].BlockchainRef)
	assert.Equal(t, map[string]string{"fullName": "Asha Rao", "phone": "555"}, apps[0].Data)

	details, err := c.FetchEnrichment(ctx, "uploads/a")
	require.NoError(t, err)
	assert.Equal(t, "documents", details.Document.DocumentType)
	require.NotNil(t, details.Application)
	assert.Equal(t, "REQ-4", details.Application.RequestID)
}

func TestClient_Errors(t *testing.T) {
	srv, _ := newServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("missing document maps to not found", func(t *testing.T) {
		_, err := c.FetchEnrichment(ctx, "uploads/none")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("validation error is preserved", func(t *testing.T) {
		err := c.SaveEnrichment(ctx, models.Submission{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unreachable store is unavailable", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		c, err := New(dead.URL)
		require.NoError(t, err)

		err = c.SaveEnrichment(ctx, models.Submission{WalletAddress: "0xabc"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("plain 404 without envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		c, err := New(srv.URL)
		require.NoError(t, err)

		_, err = c.FetchEnrichment(ctx, "x")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}
