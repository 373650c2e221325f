// Package httptransport assembles the public HTTP surface. Route handlers
// live with their bounded contexts; this package only composes them.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attest/internal/platform/metrics"
	"attest/pkg/platform/httputil"
	"attest/pkg/platform/middleware/actor"
	"attest/pkg/platform/middleware/metadata"
	"attest/pkg/platform/middleware/requestid"
	"attest/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// Registrar is implemented by every context's handler package.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the router with the shared middleware chain and mounts
// each handler under /v1. Context middleware runs first so every log line
// and audit event downstream carries the request's identity.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(actor.Middleware)
	r.Use(logMiddleware(logger))
	if m != nil {
		r.Use(metricsMiddleware(m))
	}
	r.Use(recoveryMiddleware(logger))
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Route("/v1", func(v1 chi.Router) {
		for _, h := range handlers {
			h.Register(v1)
		}
	})

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
