// Package models defines the requirements catalog read model. The catalog is
// reference data: standards and their controls are loaded from a seed or
// managed out of band, never mutated by the reconciliation flow.
package models

import (
	"strings"
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Standard is a compliance standard whose controls applications attest
// against, e.g. ISO 27001 or CIS Controls IG2.
type Standard struct {
	ID          id.StandardID
	Code        string
	Name        string
	Version     string
	Description string
	CreatedAt   time.Time
}

// Requirement is a single control within a standard. Code carries the
// standard's own control numbering ("A.5.1", "8.2").
type Requirement struct {
	ID          id.RequirementID
	StandardID  id.StandardID
	Code        string
	Title       string
	Description string
	Criticality id.Criticality
	CreatedAt   time.Time
}

// Validate checks the fields a standard must carry before it enters a store.
func (s Standard) Validate() error {
	if s.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "standard id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "standard name is required")
	}
	return nil
}

// Validate checks the fields a requirement must carry before it enters a store.
func (r Requirement) Validate() error {
	if r.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement id is required")
	}
	if r.StandardID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement standard id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement title is required")
	}
	if !r.Criticality.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement criticality is invalid")
	}
	return nil
}
