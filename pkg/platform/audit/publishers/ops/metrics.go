package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what happens to operational audit events on their way to
// the store.
type Metrics struct {
	Tracked       prometheus.Counter
	Sampled       prometheus.Counter
	Shed          prometheus.Counter
	PersistFailed prometheus.Counter
	BreakerState  prometheus.Gauge
}

// NewMetrics registers the operational audit metrics on the default
// registry. Call it once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		Tracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_audit_ops_tracked_total",
			Help: "Operational audit events handed to the publisher",
		}),
		Sampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_audit_ops_sampled_out_total",
			Help: "Operational audit events dropped by sampling",
		}),
		Shed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_audit_ops_shed_total",
			Help: "Operational audit events shed while the store breaker was open",
		}),
		PersistFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_audit_ops_persist_failures_total",
			Help: "Operational audit events the store refused",
		}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attest_audit_ops_breaker_open",
			Help: "Audit store breaker state (0 closed, 1 open)",
		}),
	}
}
