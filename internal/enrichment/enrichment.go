// Package enrichment is the off-chain store for form data and documents that
// never go on the ledger.
package enrichment

import (
	"log/slog"

	"civicledger/internal/enrichment/handler"
	"civicledger/internal/enrichment/service"
)

// Service exposes application and document storage.
type Service = service.Service

// Handler wires HTTP endpoints to the enrichment service.
type Handler = handler.Handler

// NewService constructs the enrichment service with required dependencies.
func NewService(store service.Store, sink service.Sink, opts ...service.Option) *Service {
	return service.New(store, sink, opts...)
}

// NewHandler constructs the /api/application handler.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
