// Package httpserver builds the engine's HTTP server with production
// timeouts and a graceful shutdown helper.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"attest/internal/platform/config"
)

// New builds an HTTP server from ServerConfig.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Shutdown drains in-flight requests, waiting at most the configured timeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
