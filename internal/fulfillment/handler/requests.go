package handler

import (
	"strings"

	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// ManualEditRequest is a human assessment of one (application, requirement)
// pair. There is no editor field: provenance comes from the authenticated
// request context.
type ManualEditRequest struct {
	Status           string `json:"status"`
	Evidence         string `json:"evidence"`
	Justification    string `json:"justification"`
	ResponsibleParty string `json:"responsible_party"`

	parsedStatus id.FulfillmentStatus
}

// Validate normalizes and parses the edit fields.
func (r *ManualEditRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "empty request")
	}

	status, err := id.ParseFulfillmentStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status

	if len(r.Evidence) > 4096 {
		return dErrors.New(dErrors.CodeValidation, "evidence must be 4096 characters or less")
	}
	if len(r.Justification) > 4096 {
		return dErrors.New(dErrors.CodeValidation, "justification must be 4096 characters or less")
	}
	r.ResponsibleParty = strings.TrimSpace(r.ResponsibleParty)
	if len(r.ResponsibleParty) > 256 {
		return dErrors.New(dErrors.CodeValidation, "responsible_party must be 256 characters or less")
	}
	return nil
}

// ParsedEdit returns the domain edit. Editor is left blank; the service
// resolves it from the request context.
func (r *ManualEditRequest) ParsedEdit() models.ManualEdit {
	return models.ManualEdit{
		Status:           r.parsedStatus,
		Evidence:         r.Evidence,
		Justification:    r.Justification,
		ResponsibleParty: r.ResponsibleParty,
	}
}
