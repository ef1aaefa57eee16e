package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ledger writes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeLocalOnly = "local_only"
)

// Metrics covers the reconciliation engine.
type Metrics struct {
	LedgerWrites       *prometheus.CounterVec
	EnrichmentFailures prometheus.Counter
	RefreshDuration    prometheus.Histogram
	RefreshSkipped     prometheus.Counter
	RecordsFetched     prometheus.Counter
	ViewSize           *prometheus.GaugeVec
	LossyCallStatus    prometheus.Counter
}

// New registers the collectors on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		LedgerWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "civicledger_ledger_writes_total",
			Help: "Engine operations that write to the ledger, by operation and outcome",
		}, []string{"op", "outcome"}),
		EnrichmentFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "civicledger_enrichment_sync_failures_total",
			Help: "Enrichment saves that failed after a confirmed ledger write",
		}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "civicledger_refresh_duration_seconds",
			Help:    "Duration of full ledger reconciliations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RefreshSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "civicledger_refresh_skipped_total",
			Help: "Reconciliations skipped because the identity was offline",
		}),
		RecordsFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "civicledger_ledger_records_fetched_total",
			Help: "Ledger records read during reconciliation",
		}),
		ViewSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "civicledger_view_records",
			Help: "Records in the merged view, by kind",
		}, []string{"kind"}),
		LossyCallStatus: f.NewCounter(prometheus.CounterOpts{
			Name: "civicledger_call_status_lossy_total",
			Help: "Call requests whose ledger status was read back as pending",
		}),
	}
}

func (m *Metrics) ObserveLedgerWrite(op, outcome string) {
	if m == nil {
		return
	}
	m.LedgerWrites.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) IncrementEnrichmentFailures() {
	if m == nil {
		return
	}
	m.EnrichmentFailures.Inc()
}

func (m *Metrics) ObserveRefresh(d time.Duration, fetched int) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(d.Seconds())
	m.RecordsFetched.Add(float64(fetched))
}

func (m *Metrics) IncrementRefreshSkipped() {
	if m == nil {
		return
	}
	m.RefreshSkipped.Inc()
}

func (m *Metrics) SetViewSize(requests, calls int) {
	if m == nil {
		return
	}
	m.ViewSize.WithLabelValues("request").Set(float64(requests))
	m.ViewSize.WithLabelValues("call").Set(float64(calls))
}

func (m *Metrics) IncrementLossyCallStatus() {
	if m == nil {
		return
	}
	m.LossyCallStatus.Inc()
}
