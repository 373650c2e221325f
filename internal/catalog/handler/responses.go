package handler

import (
	"time"

	"attest/internal/catalog/models"
	id "attest/pkg/domain"
)

// StandardResponse is the wire shape of one compliance standard.
type StandardResponse struct {
	ID          id.StandardID `json:"id"`
	Code        string        `json:"code,omitempty"`
	Name        string        `json:"name"`
	Version     string        `json:"version,omitempty"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RequirementResponse is the wire shape of one control.
type RequirementResponse struct {
	ID          id.RequirementID `json:"id"`
	StandardID  id.StandardID    `json:"standard_id"`
	Code        string           `json:"code,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Criticality id.Criticality   `json:"criticality"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ListStandardsResponse carries the full standards catalog.
type ListStandardsResponse struct {
	Standards []StandardResponse `json:"standards"`
}

// ListRequirementsResponse carries the controls of one standard.
type ListRequirementsResponse struct {
	Requirements []RequirementResponse `json:"requirements"`
}

// FromStandard converts a standard to its wire shape.
func FromStandard(s models.Standard) StandardResponse {
	return StandardResponse{
		ID:          s.ID,
		Code:        s.Code,
		Name:        s.Name,
		Version:     s.Version,
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
	}
}

// FromStandards converts a standard list to its wire shape.
func FromStandards(standards []models.Standard) ListStandardsResponse {
	resp := ListStandardsResponse{Standards: make([]StandardResponse, 0, len(standards))}
	for _, s := range standards {
		resp.Standards = append(resp.Standards, FromStandard(s))
	}
	return resp
}

// FromRequirement converts a requirement to its wire shape.
func FromRequirement(r models.Requirement) RequirementResponse {
	return RequirementResponse{
		ID:          r.ID,
		StandardID:  r.StandardID,
		Code:        r.Code,
		Title:       r.Title,
		Description: r.Description,
		Criticality: r.Criticality,
		CreatedAt:   r.CreatedAt,
	}
}

// FromRequirements converts a requirement list to its wire shape.
func FromRequirements(requirements []models.Requirement) ListRequirementsResponse {
	resp := ListRequirementsResponse{Requirements: make([]RequirementResponse, 0, len(requirements))}
	for _, r := range requirements {
		resp.Requirements = append(resp.Requirements, FromRequirement(r))
	}
	return resp
}
