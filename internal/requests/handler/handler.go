package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	enrichmentModels "civicledger/internal/enrichment/models"
	"civicledger/internal/identity"
	"civicledger/internal/requests/models"
	"civicledger/internal/requests/queries"
	"civicledger/internal/requests/service"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/httputil"
	"civicledger/pkg/requestcontext"
)

const maxBodyBytes = 16 << 20

// Service is the engine surface the HTTP layer drives.
type Service interface {
	Submit(ctx context.Context, in service.SubmitInput) (*service.SubmitResult, error)
	SubmitCall(ctx context.Context, in service.SubmitCallInput) (*service.SubmitResult, error)
	Accept(ctx context.Context, id string) (*service.TransitionResult, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, remarks string) (*service.TransitionResult, error)
	UpdateCallStatus(ctx context.Context, id string, status models.Status) (*service.TransitionResult, error)
	Refresh(ctx context.Context) (*service.RefreshResult, error)
	RegisterDepartment(ctx context.Context, address string) (string, error)
	IsDepartment(ctx context.Context, address string) (bool, error)
	FetchDocument(ctx context.Context, ref string) (*enrichmentModels.DocumentDetails, error)
	View(ctx context.Context) (models.View, error)
	Identity(ctx context.Context) identity.Snapshot
}

// Handler serves the reconciliation engine over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleListRequests)
		r.Post("/{id}/accept", h.handleAccept)
		r.Post("/{id}/status", h.handleUpdateStatus)
	})
	r.Route("/call-requests", func(r chi.Router) {
		r.Post("/", h.handleSubmitCall)
		r.Get("/", h.handleListCallRequests)
		r.Post("/{id}/status", h.handleUpdateCallStatus)
	})
	r.Post("/sync", h.handleSync)
	r.Get("/stats", h.handleStats)
	r.Get("/wallets", h.handleWallets)
	r.Get("/departments/activity", h.handleDepartmentActivity)
	r.Post("/departments", h.handleRegisterDepartment)
	r.Get("/departments/{address}", h.handleIsDepartment)
	r.Get("/documents", h.handleDocument)
	r.Get("/identity", h.handleIdentity)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Submit(ctx, req.toInput())
	if err != nil {
		h.fail(ctx, w, "submit failed", err)
		return
	}
	httputil.WriteJSON(w, submitStatus(res), toSubmitResponse(res))
}

func (h *Handler) handleSubmitCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitCallRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.SubmitCall(ctx, req.toInput())
	if err != nil {
		h.fail(ctx, w, "call submit failed", err)
		return
	}
	httputil.WriteJSON(w, submitStatus(res), toSubmitResponse(res))
}

// Local-only submissions are accepted but not yet on the ledger.
func submitStatus(res *service.SubmitResult) int {
	if res.Mode == models.ModeLocalOnly {
		return http.StatusAccepted
	}
	return http.StatusCreated
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.Accept(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "accept failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransitionResponse(res))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), models.Status(req.Status), req.Remarks)
	if err != nil {
		h.fail(ctx, w, "status update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransitionResponse(res))
}

func (h *Handler) handleUpdateCallStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateCallStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.UpdateCallStatus(ctx, chi.URLParam(r, "id"), models.Status(req.Status))
	if err != nil {
		h.fail(ctx, w, "call status update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransitionResponse(res))
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.Refresh(ctx)
	if err != nil {
		h.fail(ctx, w, "sync failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, syncResponse{
		Skipped:      res.Skipped,
		Fetched:      res.Fetched,
		Requests:     res.Requests,
		CallRequests: res.CallRequests,
	})
}

// handleListRequests applies wallet, service and status filters in turn.
func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadView(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if wallet := q.Get("wallet"); wallet != "" {
		v = models.View{Requests: queries.RequestsByWallet(v, wallet)}
	}
	if svc := q.Get("service"); svc != "" {
		v = models.View{Requests: queries.RequestsByService(v, svc)}
	}
	if status := q.Get("status"); status != "" {
		v = models.View{Requests: queries.RequestsByStatus(v, models.Status(status))}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": queries.AllRequests(v)})
}

func (h *Handler) handleListCallRequests(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadView(w, r)
	if !ok {
		return
	}
	calls := queries.AllCallRequests(v)
	if wallet := r.URL.Query().Get("wallet"); wallet != "" {
		calls = queries.CallRequestsByWallet(v, wallet)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"call_requests": calls})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadView(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, queries.ComputeStats(v))
}

func (h *Handler) handleWallets(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadView(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallets": queries.UniqueWallets(v)})
}

func (h *Handler) handleDepartmentActivity(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadView(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"departments": queries.AdminWallets(v)})
}

func (h *Handler) handleRegisterDepartment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerDepartmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	tx, err := h.service.RegisterDepartment(ctx, req.Address)
	if err != nil {
		h.fail(ctx, w, "department registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, departmentResponse{Address: req.Address, IsDepartment: true, TxHash: tx})
}

func (h *Handler) handleIsDepartment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr := chi.URLParam(r, "address")
	ok, err := h.service.IsDepartment(ctx, addr)
	if err != nil {
		h.fail(ctx, w, "department lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, departmentResponse{Address: addr, IsDepartment: ok})
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	details, err := h.service.FetchDocument(ctx, r.URL.Query().Get("ref"))
	if err != nil {
		h.fail(ctx, w, "document lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Identity(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"identity":      snap,
		"online":        snap.Online(),
		"wrong_network": snap.WrongNetwork(),
	})
}

func (h *Handler) loadView(w http.ResponseWriter, r *http.Request) (models.View, bool) {
	v, err := h.service.View(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "view load failed", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requests"))
		return models.View{}, false
	}
	return v, true
}

// decode reads and validates a JSON body, writing the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httputil.WriteError(w, validationError(err))
		return false
	}
	return true
}

// fail logs server-side failures at error level and client mistakes at warn.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "error", err.Error()}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
