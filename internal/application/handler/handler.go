// Package handler exposes the application registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/application/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/httputil"
	"attest/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	Register(ctx context.Context, name string, criticality id.Criticality, mode id.SyncMode, requirementIDs []id.RequirementID) (*models.Application, error)
	Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	List(ctx context.Context) ([]*models.Application, error)
	ChangeSyncMode(ctx context.Context, appID id.ApplicationID, target id.SyncMode) (*models.Application, error)
	Deregister(ctx context.Context, appID id.ApplicationID) error
}

// Handler wires registry endpoints to the application service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.HandleRegister)
	r.Get("/applications", h.HandleList)
	r.Get("/applications/{applicationID}", h.HandleGet)
	r.Delete("/applications/{applicationID}", h.HandleDeregister)
	r.Put("/applications/{applicationID}/sync-mode", h.HandleChangeSyncMode)
}

// HandleRegister handles POST /applications.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.Register(ctx, req.Name, req.ParsedCriticality(), req.ParsedSyncMode(), req.ParsedRequirementIDs())
	if err != nil {
		h.logger.WarnContext(ctx, "application registration refused",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "application registered",
		"request_id", requestID,
		"application_id", app.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, app)
}

// HandleList handles GET /applications.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	apps, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list applications",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListApplicationsResponse{Applications: apps})
}

// HandleGet handles GET /applications/{applicationID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	app, err := h.service.Get(ctx, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleChangeSyncMode handles PUT /applications/{applicationID}/sync-mode.
func (h *Handler) HandleChangeSyncMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ChangeSyncModeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.ChangeSyncMode(ctx, appID, req.ParsedSyncMode())
	if err != nil {
		h.logger.WarnContext(ctx, "sync mode change refused",
			"request_id", requestID,
			"application_id", appID,
			"target_mode", req.SyncMode,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sync mode changed",
		"request_id", requestID,
		"application_id", appID,
		"mode", app.SyncMode,
	)
	httputil.WriteJSON(w, http.StatusOK, app)
}

// HandleDeregister handles DELETE /applications/{applicationID}.
func (h *Handler) HandleDeregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Deregister(ctx, appID); err != nil {
		h.logger.WarnContext(ctx, "deregistration refused",
			"request_id", requestID,
			"application_id", appID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "application deregistered",
		"request_id", requestID,
		"application_id", appID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func pathApplicationID(r *http.Request) (id.ApplicationID, error) {
	return id.ParseApplicationID(chi.URLParam(r, "applicationID"))
}
