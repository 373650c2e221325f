package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sync state machine.
type Metrics struct {
	SyncsStarted    prometheus.Counter
	SyncsFinished   *prometheus.CounterVec
	LeaseContention prometheus.Counter
	SyncDuration    prometheus.Histogram
}

// New creates a new Metrics instance with all sync metrics registered.
func New() *Metrics {
	return &Metrics{
		SyncsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_syncs_started_total",
			Help: "Total number of sync attempts begun",
		}),
		SyncsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_syncs_finished_total",
			Help: "Finished sync attempts by outcome (synced, partial, error, failed)",
		}, []string{"outcome"}),
		LeaseContention: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_sync_lease_contention_total",
			Help: "BeginSync attempts rejected because a sync was already in flight",
		}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_sync_duration_seconds",
			Help:    "Duration from BeginSync to CompleteSync or FailSync",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementStarted records a sync attempt that acquired the lease.
func (m *Metrics) IncrementStarted() {
	m.SyncsStarted.Inc()
}

// IncrementFinished records a finished attempt by outcome.
func (m *Metrics) IncrementFinished(outcome string) {
	m.SyncsFinished.WithLabelValues(outcome).Inc()
}

// IncrementLeaseContention records a BeginSync rejected with sync_in_flight.
func (m *Metrics) IncrementLeaseContention() {
	m.LeaseContention.Inc()
}

// ObserveSync records an attempt's duration.
// Call with the attempt's begin time.
func (m *Metrics) ObserveSync(start time.Time) {
	m.SyncDuration.Observe(time.Since(start).Seconds())
}
