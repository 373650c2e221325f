package models

import (
	"strings"
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/collections"
)

// Application is the aggregate root for a registered application under
// compliance tracking.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - SyncMode and Criticality are valid enum values
//   - RequirementIDs is deduplicated, first occurrence wins
//   - CreatedAt is immutable after construction
//
// # Mode Freeze Invariant
//
// Switching SyncMode to manual freezes automated writes: provider findings
// for this application MUST be rejected with sync_mode_mismatch from the
// moment the switch lands. This is enforced at the reconciler gate (inside
// the per-pair critical section) rather than by touching fulfillment rows.
//
// This design choice:
//   - Avoids cascade updates across the application's fulfillments on switch
//   - Keeps human-entered values intact when automation is turned back on
//   - Lets an in-flight sync finish its lease lifecycle; only its writes are
//     rejected, so the lease never leaks
type Application struct {
	ID             id.ApplicationID   `json:"id"`
	Name           string             `json:"name"`
	Criticality    id.Criticality     `json:"criticality"`
	SyncMode       id.SyncMode        `json:"sync_mode"`
	RequirementIDs []id.RequirementID `json:"requirement_ids"`
	Version        int64              `json:"-"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// IsProviderSynced reports whether automated findings may write to this
// application's fulfillments.
func (a *Application) IsProviderSynced() bool {
	return a.SyncMode == id.SyncModeProvider
}

// HasRequirement reports whether a requirement is associated with this
// application. Scoring only counts associated requirements.
func (a *Application) HasRequirement(reqID id.RequirementID) bool {
	return collections.Contains(a.RequirementIDs, reqID)
}

// CanChangeSyncMode checks whether the mode transition is allowed.
// Use with ApplySyncModeChange in Execute callbacks.
func (a *Application) CanChangeSyncMode(target id.SyncMode) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "sync mode is invalid")
	}
	if a.SyncMode == target {
		return dErrors.New(dErrors.CodeInvariantViolation, "application is already in "+string(target)+" mode")
	}
	return nil
}

// ApplySyncModeChange transitions the sync mode.
// Call CanChangeSyncMode first to validate the transition.
func (a *Application) ApplySyncModeChange(target id.SyncMode, now time.Time) {
	a.SyncMode = target
	a.UpdatedAt = now
}

// NewApplication constructs a registered application. An empty criticality
// defaults to medium; an empty sync mode defaults to manual so automation
// never writes before someone turns it on.
func NewApplication(appID id.ApplicationID, name string, criticality id.Criticality, mode id.SyncMode, requirementIDs []id.RequirementID, now time.Time) (*Application, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application name must be 128 characters or less")
	}

	if criticality == "" {
		criticality = id.CriticalityMedium
	}
	if !criticality.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "criticality is invalid")
	}

	if mode == "" {
		mode = id.SyncModeManual
	}
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sync mode is invalid")
	}

	return &Application{
		ID:             appID,
		Name:           name,
		Criticality:    criticality,
		SyncMode:       mode,
		RequirementIDs: collections.Dedupe(requirementIDs),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
