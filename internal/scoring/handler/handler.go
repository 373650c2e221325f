// Package handler exposes compliance scores over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/scoring"
	id "attest/pkg/domain"
	"attest/pkg/platform/httputil"
)

// Service defines the interface for score computation.
type Service interface {
	Score(ctx context.Context, appID id.ApplicationID) (*scoring.Score, error)
}

// Handler wires the score endpoint to the scoring service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a scoring handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the score endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/applications/{applicationID}/score", h.HandleScore)
}

// HandleScore handles GET /applications/{applicationID}/score.
//
// Scores are computed on read, never stored, so this endpoint always
// reflects the records as they are now.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	score, err := h.service.Score(ctx, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}
