// Package metrics holds the shared HTTP transport metrics. Domain metrics
// live next to their services; this package only covers the request surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the HTTP surface.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates and registers the transport metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attest_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		RequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attest_http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
	}
}

// ObserveRequest records one served request. Route is the chi route pattern,
// not the raw path, so label cardinality stays bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	m.RequestDuration.WithLabelValues(method, route, statusLabel(status)).
		Observe(time.Since(start).Seconds())
}

// TrackInFlight marks a request as in flight until the returned func runs.
func (m *Metrics) TrackInFlight() func() {
	m.RequestsInFlight.Inc()
	return m.RequestsInFlight.Dec
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
