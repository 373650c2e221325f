package domain

import dErrors "attest/pkg/domain-errors"

// FulfillmentStatus is the assessed state of one requirement for one application.
// Invariant: the value must be one of the four supported statuses.
//
// Usage: construct via ParseFulfillmentStatus at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type FulfillmentStatus string

const (
	StatusFulfilled          FulfillmentStatus = "fulfilled"
	StatusPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	StatusNotFulfilled       FulfillmentStatus = "not_fulfilled"
	StatusNotApplicable      FulfillmentStatus = "not_applicable"
)

// validFulfillmentStatuses is the single source of truth for valid statuses.
var validFulfillmentStatuses = map[FulfillmentStatus]bool{
	StatusFulfilled:          true,
	StatusPartiallyFulfilled: true,
	StatusNotFulfilled:       true,
	StatusNotApplicable:      true,
}

// ParseFulfillmentStatus constructs a FulfillmentStatus from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseFulfillmentStatus(s string) (FulfillmentStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := FulfillmentStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid fulfillment status")
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s FulfillmentStatus) IsValid() bool {
	return validFulfillmentStatuses[s]
}

// Weight returns the scoring weight of the status. NotApplicable carries no
// weight and is excluded from score denominators by the scorer.
func (s FulfillmentStatus) Weight() float64 {
	switch s {
	case StatusFulfilled:
		return 1.0
	case StatusPartiallyFulfilled:
		return 0.5
	default:
		return 0.0
	}
}

// String returns the string representation of the status.
func (s FulfillmentStatus) String() string {
	return string(s)
}
