// Package service is the reconciliation engine. It writes to the ledger,
// keeps the merged view consistent with it, and pushes enrichment to the
// off-chain store. No operation retries a write.
package service

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	enrichmentmodels "civicledger/internal/enrichment/models"
	"civicledger/internal/identity"
	"civicledger/internal/ledger"
	"civicledger/internal/requests/metrics"
	"civicledger/internal/requests/models"
	"civicledger/internal/requests/view"
	"civicledger/pkg/platform/audit"
	"civicledger/pkg/requestcontext"
)

// DefaultFetchConcurrency bounds parallel ledger reads during Refresh.
const DefaultFetchConcurrency = 4

// LedgerClient is one identity's handle on the request contract.
type LedgerClient interface {
	SubmitRequest(ctx context.Context, category, name string) (*ledger.WriteResult, error)
	AcceptRequest(ctx context.Context, id uint64) (*ledger.WriteResult, error)
	UpdateStatus(ctx context.Context, id uint64, status ledger.Status) (*ledger.WriteResult, error)
	GetRequest(ctx context.Context, id uint64) (*ledger.Record, error)
	TotalRequests(ctx context.Context) (uint64, error)
	IsDepartment(ctx context.Context, address string) (bool, error)
	AddDepartment(ctx context.Context, address string) (*ledger.WriteResult, error)
	Admin(ctx context.Context) (string, error)
}

// EnrichmentStore holds form data and documents the ledger never sees.
type EnrichmentStore interface {
	SaveEnrichment(ctx context.Context, sub enrichmentmodels.Submission) error
	FetchEnrichment(ctx context.Context, documentRef string) (*enrichmentmodels.DocumentDetails, error)
}

// ViewStore owns the merged snapshot.
type ViewStore interface {
	Load(ctx context.Context) (models.View, error)
	Update(ctx context.Context, fn view.UpdateFunc) (models.View, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service reconciles one identity's ledger access with the merged view.
type Service struct {
	ledger      LedgerClient
	enrichment  EnrichmentStore
	identity    identity.Provider
	views       ViewStore
	auditor     AuditPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	concurrency int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithFetchConcurrency sets how many ledger records Refresh reads at once.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(ledgerClient LedgerClient, enrichment EnrichmentStore, ident identity.Provider, views ViewStore, opts ...Option) *Service {
	s := &Service{
		ledger:      ledgerClient,
		enrichment:  enrichment,
		identity:    ident,
		views:       views,
		logger:      slog.Default(),
		tracer:      otel.Tracer("civicledger/requests"),
		concurrency: DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the current snapshot. Provider errors read as offline.
func (s *Service) Identity(ctx context.Context) identity.Snapshot {
	snap, err := s.identity.Snapshot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "identity unavailable", "error", err)
		return identity.Snapshot{}
	}
	return snap
}

// View returns the current merged snapshot.
func (s *Service) View(ctx context.Context) (models.View, error) {
	return s.views.Load(ctx)
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "requests."+name)
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, subject, actor, txHash, status, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		Subject:   subject,
		Action:    string(event),
		ActorID:   actor,
		TxHash:    txHash,
		Status:    status,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event, "subject", subject, "error", err)
	}
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
