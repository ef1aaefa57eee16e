package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	enrichmentHandler "civicledger/internal/enrichment/handler"
	"civicledger/internal/platform/metrics"
	"civicledger/internal/platform/middleware"
	requestsHandler "civicledger/internal/requests/handler"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/httputil"
)

// Router mounts the engine API under /api, the enrichment store API, health
// and metrics.
func (a *App) Router() http.Handler {
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(a.Logger))
	r.Use(middleware.Logger(a.Logger))
	r.Use(middleware.Instrument(metrics.New(a.Registry)))

	r.Get("/healthz", a.handleHealth)
	r.Handle(a.Config.Server.MetricsPath, promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		requestsHandler.New(a.Engine, a.Logger).Register(r)
	})
	enrichmentHandler.New(a.Enrichment, a.Logger).Register(r)
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.Health(r.Context()); err != nil {
		a.Logger.WarnContext(r.Context(), "health check failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "dependency unhealthy"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
