package handler

import (
	"strings"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// RegisterApplicationRequest is the HTTP request body for POST /applications.
type RegisterApplicationRequest struct {
	Name           string   `json:"name"`
	Criticality    string   `json:"criticality"`
	SyncMode       string   `json:"sync_mode"`
	RequirementIDs []string `json:"requirement_ids"`

	// Parsed values (populated by Validate)
	parsedCriticality id.Criticality
	parsedSyncMode    id.SyncMode
	parsedReqIDs      []id.RequirementID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterApplicationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name must be 128 characters or less")
	}

	criticality, err := id.ParseCriticality(r.Criticality)
	if err != nil {
		return err
	}
	r.parsedCriticality = criticality

	// Sync mode is chosen at registration; there is no implicit default.
	mode, err := id.ParseSyncMode(r.SyncMode)
	if err != nil {
		return err
	}
	r.parsedSyncMode = mode

	r.parsedReqIDs = make([]id.RequirementID, 0, len(r.RequirementIDs))
	for i, raw := range r.RequirementIDs {
		reqID, err := id.ParseRequirementID(raw)
		if err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "requirement_ids[%d]: %s", i, dErrors.MessageOf(err))
		}
		r.parsedReqIDs = append(r.parsedReqIDs, reqID)
	}
	return nil
}

// ParsedCriticality returns the criticality parsed during validation.
func (r *RegisterApplicationRequest) ParsedCriticality() id.Criticality {
	return r.parsedCriticality
}

// ParsedSyncMode returns the sync mode parsed during validation.
func (r *RegisterApplicationRequest) ParsedSyncMode() id.SyncMode {
	return r.parsedSyncMode
}

// ParsedRequirementIDs returns the requirement IDs parsed during validation.
func (r *RegisterApplicationRequest) ParsedRequirementIDs() []id.RequirementID {
	return r.parsedReqIDs
}

// ChangeSyncModeRequest is the HTTP request body for
// PUT /applications/{applicationID}/sync-mode.
type ChangeSyncModeRequest struct {
	SyncMode string `json:"sync_mode"`

	parsedSyncMode id.SyncMode
}

// Validate validates and parses the request.
func (r *ChangeSyncModeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	mode, err := id.ParseSyncMode(r.SyncMode)
	if err != nil {
		return err
	}
	r.parsedSyncMode = mode
	return nil
}

// ParsedSyncMode returns the sync mode parsed during validation.
func (r *ChangeSyncModeRequest) ParsedSyncMode() id.SyncMode {
	return r.parsedSyncMode
}
