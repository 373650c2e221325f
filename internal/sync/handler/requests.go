package handler

import (
	"strings"

	dErrors "attest/pkg/domain-errors"
)

// FailSyncRequest reports an attempt the caller could not complete. The
// reason is optional; the service substitutes a fixed message when blank.
type FailSyncRequest struct {
	Reason string `json:"reason"`
}

// Validate normalizes and bounds the failure reason.
func (r *FailSyncRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "empty request")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "reason must be 1024 characters or less")
	}
	return nil
}
