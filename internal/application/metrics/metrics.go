package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the application registry.
type Metrics struct {
	ApplicationsRegistered   prometheus.Counter
	ApplicationsDeregistered prometheus.Counter
	SyncModeChanges          *prometheus.CounterVec
	RegisterDuration         prometheus.Histogram
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		ApplicationsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_applications_registered_total",
			Help: "Total number of applications registered",
		}),
		ApplicationsDeregistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_applications_deregistered_total",
			Help: "Total number of applications deregistered",
		}),
		SyncModeChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_application_sync_mode_changes_total",
			Help: "Sync mode changes by target mode",
		}, []string{"mode"}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_application_register_duration_seconds",
			Help:    "Duration of Register operations (catalog verification included)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRegistered records a successful application registration.
func (m *Metrics) IncrementRegistered() {
	m.ApplicationsRegistered.Inc()
}

// IncrementDeregistered records a successful application removal.
func (m *Metrics) IncrementDeregistered() {
	m.ApplicationsDeregistered.Inc()
}

// IncrementSyncModeChange records a mode switch by target mode.
func (m *Metrics) IncrementSyncModeChange(mode string) {
	m.SyncModeChanges.WithLabelValues(mode).Inc()
}

// ObserveRegister records the duration of a Register operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
