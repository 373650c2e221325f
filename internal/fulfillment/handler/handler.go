// Package handler exposes fulfillment records and manual assessment over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/httputil"
	"attest/pkg/requestcontext"
)

// Service defines the interface for fulfillment operations reachable over
// HTTP. Reconciliation is absent: findings arrive through the sync
// lifecycle, never through this surface.
type Service interface {
	Get(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID) (*models.Fulfillment, error)
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.Fulfillment, error)
	ApplyManualEdit(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID, edit models.ManualEdit) (*models.Fulfillment, error)
	RevertToAutomated(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID) (*models.Fulfillment, error)
}

// Handler wires fulfillment endpoints to the fulfillment service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a fulfillment handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts fulfillment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/applications/{applicationID}/fulfillments", h.HandleList)
	r.Get("/applications/{applicationID}/fulfillments/{requirementID}", h.HandleGet)
	r.Put("/applications/{applicationID}/fulfillments/{requirementID}", h.HandleManualEdit)
	r.Post("/applications/{applicationID}/fulfillments/{requirementID}/revert", h.HandleRevert)
}

// HandleList handles GET /applications/{applicationID}/fulfillments.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.ListByApplication(ctx, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromFulfillments(records))
}

// HandleGet handles GET /applications/{applicationID}/fulfillments/{requirementID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, reqID, err := pathPair(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Get(ctx, appID, reqID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromFulfillment(record))
}

// HandleManualEdit handles PUT /applications/{applicationID}/fulfillments/{requirementID}.
//
// The editing principal comes from the request context, never the body:
// audit provenance must name who authenticated, not who the payload claims.
func (h *Handler) HandleManualEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	appID, reqID, err := pathPair(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ManualEditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.ApplyManualEdit(ctx, appID, reqID, req.ParsedEdit())
	if err != nil {
		h.logger.WarnContext(ctx, "manual edit refused",
			"request_id", requestID,
			"application_id", appID,
			"requirement_id", reqID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual edit recorded",
		"request_id", requestID,
		"application_id", appID,
		"requirement_id", reqID,
		"status", record.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromFulfillment(record))
}

// HandleRevert handles POST /applications/{applicationID}/fulfillments/{requirementID}/revert.
func (h *Handler) HandleRevert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appID, reqID, err := pathPair(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.RevertToAutomated(ctx, appID, reqID)
	if err != nil {
		h.logger.WarnContext(ctx, "override revert refused",
			"request_id", requestID,
			"application_id", appID,
			"requirement_id", reqID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual override reverted",
		"request_id", requestID,
		"application_id", appID,
		"requirement_id", reqID,
		"status", record.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromFulfillment(record))
}

func pathApplicationID(r *http.Request) (id.ApplicationID, error) {
	return id.ParseApplicationID(chi.URLParam(r, "applicationID"))
}

func pathPair(r *http.Request) (id.ApplicationID, id.RequirementID, error) {
	appID, err := pathApplicationID(r)
	if err != nil {
		return id.ApplicationID{}, id.RequirementID{}, err
	}
	reqID, err := id.ParseRequirementID(chi.URLParam(r, "requirementID"))
	if err != nil {
		return id.ApplicationID{}, id.RequirementID{}, err
	}
	return appID, reqID, nil
}
