// Package handler exposes the sync state machine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/sync/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/httputil"
	"attest/pkg/requestcontext"
)

// Service defines the interface for sync lifecycle operations.
type Service interface {
	Metadata(ctx context.Context, appID id.ApplicationID) (*models.Metadata, error)
	BeginSync(ctx context.Context, appID id.ApplicationID) (*models.Metadata, error)
	CompleteSyncFromPayload(ctx context.Context, appID id.ApplicationID, payload []byte) (*models.Metadata, error)
	FailSync(ctx context.Context, appID id.ApplicationID, reason string) (*models.Metadata, error)
}

// Handler wires sync lifecycle endpoints to the sync service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a sync handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts sync lifecycle endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/applications/{applicationID}/sync", h.HandleMetadata)
	r.Post("/applications/{applicationID}/sync/begin", h.HandleBegin)
	r.Post("/applications/{applicationID}/sync/complete", h.HandleComplete)
	r.Post("/applications/{applicationID}/sync/fail", h.HandleFail)
}

// HandleMetadata handles GET /applications/{applicationID}/sync.
func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	m, err := h.service.Metadata(ctx, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

// HandleBegin handles POST /applications/{applicationID}/sync/begin.
//
// Returns 202: the attempt is open but the provider fetch happens out of
// band, so the caller holds an in-flight state, not a result.
func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	m, err := h.service.BeginSync(ctx, appID)
	if err != nil {
		h.logger.WarnContext(ctx, "sync attempt refused",
			"request_id", requestID,
			"application_id", appID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sync attempt opened",
		"request_id", requestID,
		"application_id", appID,
	)
	httputil.WriteJSON(w, http.StatusAccepted, m)
}

// HandleComplete handles POST /applications/{applicationID}/sync/complete.
//
// The body is the raw provider payload: it is handed to the ingest parser
// unmodified rather than decoded here.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payload, err := httputil.ReadBody(r)
	if err != nil {
		h.logger.WarnContext(ctx, "sync payload rejected",
			"request_id", requestID,
			"application_id", appID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	m, err := h.service.CompleteSyncFromPayload(ctx, appID, payload)
	if err != nil {
		h.logger.WarnContext(ctx, "sync completion refused",
			"request_id", requestID,
			"application_id", appID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sync attempt completed",
		"request_id", requestID,
		"application_id", appID,
		"status", m.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, m)
}

// HandleFail handles POST /applications/{applicationID}/sync/fail.
func (h *Handler) HandleFail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[FailSyncRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	m, err := h.service.FailSync(ctx, appID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "sync failure report refused",
			"request_id", requestID,
			"application_id", appID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sync attempt marked failed",
		"request_id", requestID,
		"application_id", appID,
		"reason", req.Reason,
	)
	httputil.WriteJSON(w, http.StatusOK, m)
}

func pathApplicationID(r *http.Request) (id.ApplicationID, error) {
	return id.ParseApplicationID(chi.URLParam(r, "applicationID"))
}
