package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"civicledger/internal/enrichment/metrics"
	"civicledger/internal/enrichment/models"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/sentinel"
	"civicledger/pkg/requestcontext"
)

// MessageDocumentSyncFailed is returned when the application row exists but
// its documents could not be stored.
const MessageDocumentSyncFailed = "application saved but document sync failed"

type Store interface {
	FindOrCreateApplicant(ctx context.Context, wallet string, now time.Time) (*models.Applicant, error)
	CreateApplication(ctx context.Context, app *models.Application) error
	AddDocuments(ctx context.Context, appID uuid.UUID, docs []models.Document, now time.Time) error
	ListApplications(ctx context.Context) ([]models.Application, error)
	FindDocumentByURL(ctx context.Context, url string) (*models.DocumentDetails, error)
}

// Sink stores attachment bytes and returns the reference documents are keyed by.
type Sink interface {
	Put(ctx context.Context, content []byte) (string, error)
}

// Service owns the off-chain application records.
type Service struct {
	store   Store
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(store Store, sink Sink, opts ...Option) *Service {
	s := &Service{store: store, sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit finds or creates the applicant, saves the application, then stores
// one document per attachment. A document failure leaves the application in
// place and is reported with MessageDocumentSyncFailed.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*models.SubmitResult, error) {
	start := time.Now()
	defer s.metrics.ObserveSubmit(start)

	wallet := strings.TrimSpace(sub.WalletAddress)
	if wallet == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "walletAddress is required")
	}
	now := requestcontext.Now(ctx)

	applicant, err := s.store.FindOrCreateApplicant(ctx, wallet, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "applicant processing failed")
	}

	app := &models.Application{
		ID:            uuid.New(),
		RequestID:     sub.RequestID,
		ServiceID:     defaultIfEmpty(sub.ServiceID, models.DefaultServiceID),
		ServiceType:   defaultIfEmpty(sub.ServiceType, models.DefaultServiceType),
		WalletAddress: wallet,
		ApplicantName: sub.ApplicantName(),
		BlockchainRef: sub.TxHash,
		Data:          copyFields(sub.FormFields),
		Status:        models.ApplicationSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "application already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "application sync failed")
	}
	s.metrics.IncrementApplicationsCreated()

	result := &models.SubmitResult{Application: app, Documents: []models.Document{}}
	if len(sub.Attachments) == 0 {
		s.logger.InfoContext(ctx, "application stored",
			"application_id", app.ID, "request_id", app.RequestID, "documents", 0)
		return result, nil
	}

	docs, err := s.storeAttachments(ctx, applicant.ID, app.ID, sub.Attachments, now)
	if err == nil {
		err = s.store.AddDocuments(ctx, app.ID, docs, now)
	}
	if err != nil {
		s.metrics.IncrementDocumentSyncFailed()
		s.logger.ErrorContext(ctx, "document sync failed",
			"application_id", app.ID, "request_id", app.RequestID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, MessageDocumentSyncFailed)
	}
	s.metrics.AddDocumentsStored(len(docs))

	for _, d := range docs {
		app.Documents = append(app.Documents, models.DocumentRef{
			DocumentType: d.DocumentType,
			URL:          d.DocumentURL,
			Status:       d.Status,
		})
	}
	app.UpdatedAt = now
	result.Documents = docs
	s.logger.InfoContext(ctx, "application stored",
		"application_id", app.ID, "request_id", app.RequestID, "documents", len(docs))
	return result, nil
}

func (s *Service) storeAttachments(ctx context.Context, applicantID, appID uuid.UUID, atts []models.Attachment, now time.Time) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(atts))
	for _, att := range atts {
		ref, err := s.sink.Put(ctx, att.Content)
		if err != nil {
			return nil, err
		}
		mt := mimetype.Detect(att.Content)
		ext := filepath.Ext(att.FileName)
		if ext == "" {
			ext = mt.Extension()
		}
		docs = append(docs, models.Document{
			ID:            uuid.New(),
			ApplicantID:   applicantID,
			ApplicationID: appID,
			DocumentType:  defaultIfEmpty(att.Field, models.DefaultDocumentType),
			DocumentURL:   ref,
			FileType:      mt.String(),
			FileExtension: ext,
			Size:          int64(len(att.Content)),
			Status:        models.DocumentPending,
			CreatedAt:     now,
		})
	}
	return docs, nil
}

// ListApplications returns every application, newest first.
func (s *Service) ListApplications(ctx context.Context) ([]models.Application, error) {
	apps, err := s.store.ListApplications(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch applications")
	}
	return apps, nil
}

// DocumentDetails resolves a document reference with its applicant and application.
func (s *Service) DocumentDetails(ctx context.Context, url string) (*models.DocumentDetails, error) {
	if strings.TrimSpace(url) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "url is required")
	}
	details, err := s.store.FindDocumentByURL(ctx, url)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return details, nil
}

func defaultIfEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
