// Package domain holds identifiers and enumerations shared across bounded
// contexts. Types here are storage- and transport-agnostic.
package domain

import (
	"github.com/google/uuid"

	dErrors "attest/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types prevent cross-entity assignment at
// compile time; parse functions enforce validity at trust boundaries.
//
// Invariant: IDs must be valid, non-nil UUIDs. Direct conversion bypasses
// validation and is reserved for internal construction (uuid.New()).
type (
	// ApplicationID identifies a registered application under assessment.
	ApplicationID uuid.UUID

	// RequirementID identifies a requirement in the catalog.
	RequirementID uuid.UUID

	// StandardID identifies a compliance standard (e.g. an ISO framework).
	StandardID uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

// ParseApplicationID constructs an ApplicationID from external input.
// Returns CodeInvalidInput for empty, malformed, or nil values.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application id")
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

// ParseRequirementID constructs a RequirementID from external input.
func ParseRequirementID(s string) (RequirementID, error) {
	u, err := parseUUID(s, "requirement id")
	if err != nil {
		return RequirementID{}, err
	}
	return RequirementID(u), nil
}

// ParseStandardID constructs a StandardID from external input.
func ParseStandardID(s string) (StandardID, error) {
	u, err := parseUUID(s, "standard id")
	if err != nil {
		return StandardID{}, err
	}
	return StandardID(u), nil
}

func (i ApplicationID) String() string { return uuid.UUID(i).String() }
func (i RequirementID) String() string { return uuid.UUID(i).String() }
func (i StandardID) String() string    { return uuid.UUID(i).String() }

func (i ApplicationID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i RequirementID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i StandardID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }

// MarshalText implements encoding.TextMarshaler so typed IDs serialize as
// canonical UUID strings in JSON bodies and map keys.
func (i ApplicationID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i RequirementID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i StandardID) MarshalText() ([]byte, error)    { return []byte(i.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler with full validation.
func (i *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i *RequirementID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequirementID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i *StandardID) UnmarshalText(b []byte) error {
	parsed, err := ParseStandardID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
