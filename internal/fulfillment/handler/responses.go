package handler

import (
	"time"

	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
)

// FulfillmentResponse is the wire shape of one fulfillment record. The
// automated shadow and override marker are explicit here; the model keeps
// them off its own wire form so only this surface decides what leaves.
type FulfillmentResponse struct {
	ApplicationID    id.ApplicationID        `json:"application_id"`
	RequirementID    id.RequirementID        `json:"requirement_id"`
	Status           id.FulfillmentStatus    `json:"status"`
	Evidence         string                  `json:"evidence,omitempty"`
	Justification    string                  `json:"justification,omitempty"`
	Automated        *models.AutomatedAnswer `json:"automated,omitempty"`
	Override         *models.Override        `json:"override,omitempty"`
	IsAutoAnswered   bool                    `json:"is_auto_answered"`
	IsManualOverride bool                    `json:"is_manual_override"`
	ResponsibleParty string                  `json:"responsible_party,omitempty"`
	LastModifiedBy   string                  `json:"last_modified_by"`
	LastModifiedAt   time.Time               `json:"last_modified_at"`
	LastAssessedAt   *time.Time              `json:"last_assessed_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// ListFulfillmentsResponse carries all records for one application.
type ListFulfillmentsResponse struct {
	Fulfillments []FulfillmentResponse `json:"fulfillments"`
}

// FromFulfillment converts a record to its wire shape. LastAssessedAt is
// omitted for records automation has never seen.
func FromFulfillment(f *models.Fulfillment) FulfillmentResponse {
	resp := FulfillmentResponse{
		ApplicationID:    f.ApplicationID,
		RequirementID:    f.RequirementID,
		Status:           f.Status,
		Evidence:         f.Evidence,
		Justification:    f.Justification,
		Automated:        f.Automated,
		Override:         f.Override,
		IsAutoAnswered:   f.IsAutoAnswered(),
		IsManualOverride: f.IsManualOverride(),
		ResponsibleParty: f.ResponsibleParty,
		LastModifiedBy:   f.LastModifiedBy,
		LastModifiedAt:   f.LastModifiedAt,
		CreatedAt:        f.CreatedAt,
	}
	if !f.LastAssessedAt.IsZero() {
		assessed := f.LastAssessedAt
		resp.LastAssessedAt = &assessed
	}
	return resp
}

// FromFulfillments converts a record list to its wire shape.
func FromFulfillments(records []*models.Fulfillment) ListFulfillmentsResponse {
	resp := ListFulfillmentsResponse{Fulfillments: make([]FulfillmentResponse, 0, len(records))}
	for _, f := range records {
		resp.Fulfillments = append(resp.Fulfillments, FromFulfillment(f))
	}
	return resp
}
