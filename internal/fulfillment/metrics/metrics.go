package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconciliation engine.
type Metrics struct {
	FindingsReconciled *prometheus.CounterVec
	ManualEdits        prometheus.Counter
	OverrideReverts    prometheus.Counter
	ReconcileDuration  prometheus.Histogram
}

// New creates a new Metrics instance with all reconciliation metrics registered.
func New() *Metrics {
	return &Metrics{
		FindingsReconciled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_findings_reconciled_total",
			Help: "Reconciled automated findings by outcome",
		}, []string{"outcome"}),
		ManualEdits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_manual_edits_total",
			Help: "Total number of manual fulfillment edits applied",
		}),
		OverrideReverts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_override_reverts_total",
			Help: "Total number of manual overrides reverted to the automated answer",
		}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_reconcile_duration_seconds",
			Help:    "Duration of single-finding reconciliations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementReconciled records a reconciliation by outcome.
func (m *Metrics) IncrementReconciled(outcome string) {
	m.FindingsReconciled.WithLabelValues(outcome).Inc()
}

// IncrementManualEdit records an applied manual edit.
func (m *Metrics) IncrementManualEdit() {
	m.ManualEdits.Inc()
}

// IncrementRevert records a reverted override.
func (m *Metrics) IncrementRevert() {
	m.OverrideReverts.Inc()
}

// ObserveReconcile records the duration of a Reconcile call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveReconcile(start time.Time) {
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}
