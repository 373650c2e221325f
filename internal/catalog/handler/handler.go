// Package handler exposes the requirements catalog over HTTP. Read-only:
// the catalog is seeded reference data.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/catalog/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/httputil"
)

// Service defines the interface for catalog reads.
type Service interface {
	Standard(ctx context.Context, stdID id.StandardID) (*models.Standard, error)
	Standards(ctx context.Context) ([]models.Standard, error)
	Requirement(ctx context.Context, reqID id.RequirementID) (*models.Requirement, error)
	RequirementsByStandard(ctx context.Context, stdID id.StandardID) ([]models.Requirement, error)
}

// Handler wires catalog endpoints to the catalog service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a catalog handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts catalog endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/standards", h.HandleListStandards)
	r.Get("/standards/{standardID}", h.HandleGetStandard)
	r.Get("/standards/{standardID}/requirements", h.HandleRequirementsByStandard)
	r.Get("/requirements/{requirementID}", h.HandleGetRequirement)
}

// HandleListStandards handles GET /standards.
func (h *Handler) HandleListStandards(w http.ResponseWriter, r *http.Request) {
	standards, err := h.service.Standards(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStandards(standards))
}

// HandleGetStandard handles GET /standards/{standardID}.
func (h *Handler) HandleGetStandard(w http.ResponseWriter, r *http.Request) {
	stdID, err := id.ParseStandardID(chi.URLParam(r, "standardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	standard, err := h.service.Standard(r.Context(), stdID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStandard(*standard))
}

// HandleRequirementsByStandard handles GET /standards/{standardID}/requirements.
func (h *Handler) HandleRequirementsByStandard(w http.ResponseWriter, r *http.Request) {
	stdID, err := id.ParseStandardID(chi.URLParam(r, "standardID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	requirements, err := h.service.RequirementsByStandard(r.Context(), stdID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequirements(requirements))
}

// HandleGetRequirement handles GET /requirements/{requirementID}.
func (h *Handler) HandleGetRequirement(w http.ResponseWriter, r *http.Request) {
	reqID, err := id.ParseRequirementID(chi.URLParam(r, "requirementID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	requirement, err := h.service.Requirement(r.Context(), reqID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequirement(*requirement))
}
