package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the enrichment store's write path.
type Metrics struct {
	ApplicationsCreated prometheus.Counter
	DocumentsStored     prometheus.Counter
	DocumentSyncFailed  prometheus.Counter
	SubmitDuration      prometheus.Histogram
}

// New registers the collectors on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "civicledger_enrichment_applications_created_total",
			Help: "Applications persisted in the enrichment store",
		}),
		DocumentsStored: f.NewCounter(prometheus.CounterOpts{
			Name: "civicledger_enrichment_documents_stored_total",
			Help: "Documents persisted in the enrichment store",
		}),
		DocumentSyncFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "civicledger_enrichment_document_sync_failed_total",
			Help: "Applications saved whose documents could not be stored",
		}),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civicledger_enrichment_submit_duration_seconds",
			Help:    "Duration of application submissions including attachment writes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementApplicationsCreated() {
	if m == nil {
		return
	}
	m.ApplicationsCreated.Inc()
}

func (m *Metrics) AddDocumentsStored(n int) {
	if m == nil {
		return
	}
	m.DocumentsStored.Add(float64(n))
}

func (m *Metrics) IncrementDocumentSyncFailed() {
	if m == nil {
		return
	}
	m.DocumentSyncFailed.Inc()
}

// ObserveSubmit records the duration since start.
func (m *Metrics) ObserveSubmit(start time.Time) {
	if m == nil {
		return
	}
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}
