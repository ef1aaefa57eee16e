package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"civicledger/internal/enrichment/models"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/httputil"
	"civicledger/pkg/requestcontext"
)

const maxUploadMemory = 32 << 20

// Fields with dedicated meaning; every other text field is kept as form data.
var reservedFields = map[string]bool{
	"requestId":        true,
	"walletAddress":    true,
	"serviceId":        true,
	"serviceType":      true,
	"blockchainTxHash": true,
	"blockchainRef":    true,
	"status":           true,
}

type Service interface {
	Submit(ctx context.Context, sub models.Submission) (*models.SubmitResult, error)
	ListApplications(ctx context.Context) ([]models.Application, error)
	DocumentDetails(ctx context.Context, url string) (*models.DocumentDetails, error)
}

// Handler serves the enrichment store's HTTP surface.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the routes under /api/application.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/application", func(r chi.Router) {
		r.Post("/submit", h.handleSubmit)
		r.Get("/all", h.handleListApplications)
		r.Get("/document-details", h.handleDocumentDetails)
	})
}

type listApplicationsResponse struct {
	Applications []models.Application `json:"applications"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.WarnContext(ctx, "invalid multipart submission", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	sub, err := submissionFromForm(r.MultipartForm)
	if err != nil {
		h.logger.WarnContext(ctx, "unreadable attachment", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable attachment"))
		return
	}

	res, err := h.service.Submit(ctx, sub)
	if err != nil {
		h.logger.ErrorContext(ctx, "application submission failed",
			"request_id", requestID,
			"wallet", sub.WalletAddress,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.ListApplications(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list applications", "error", err)
		httputil.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}
	httputil.WriteJSON(w, http.StatusOK, listApplicationsResponse{Applications: apps})
}

func (h *Handler) handleDocumentDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.DocumentDetails(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

func submissionFromForm(form *multipart.Form) (models.Submission, error) {
	first := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	sub := models.Submission{
		RequestID:     first("requestId"),
		WalletAddress: first("walletAddress"),
		ServiceID:     first("serviceId"),
		ServiceType:   first("serviceType"),
		TxHash:        first("blockchainTxHash"),
		FormFields:    make(map[string]string),
	}
	if sub.TxHash == "" {
		sub.TxHash = first("blockchainRef")
	}
	for k, v := range form.Value {
		if reservedFields[k] || len(v) == 0 {
			continue
		}
		sub.FormFields[k] = v[0]
	}

	// Any file field is accepted; order by field name for stable document order.
	fields := make([]string, 0, len(form.File))
	for k := range form.File {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, field := range fields {
		for _, fh := range form.File[field] {
			content, err := readPart(fh)
			if err != nil {
				return models.Submission{}, err
			}
			sub.Attachments = append(sub.Attachments, models.Attachment{
				Field:    field,
				FileName: fh.Filename,
				Content:  content,
			})
		}
	}
	return sub, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
