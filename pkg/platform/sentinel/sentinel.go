package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, leases, and other
// infrastructure layers return these (optionally wrapped) so services can
// translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: write collided with an existing row (unique constraint)
//   - ErrAlreadyUsed: name or slot already taken by another entity
//   - ErrVersionMismatch: optimistic concurrency token drifted between read and write
//   - ErrLeaseHeld: another holder owns the lease
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyUsed     = errors.New("already used")
	ErrVersionMismatch = errors.New("version mismatch")
	ErrLeaseHeld       = errors.New("lease held")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
)
