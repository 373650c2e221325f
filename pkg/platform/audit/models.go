package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "attest/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: manual overrides, reverts, sync mode changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: findings pushed at applications that do not accept them.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: sync lifecycle, routine finding application.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	// RequirementID is set for fulfillment-level events and zero for
	// application- and sync-level events.
	RequirementID id.RequirementID
	Action        string
	// Actor is the principal that triggered the event; system-initiated
	// writes record the sync identity.
	Actor string
	// Source names the provider behind automated findings.
	Source string
	// Decision captures the reconciliation outcome (applied, suppressed,
	// rejected) for finding events.
	Decision  string
	Reason    string
	RequestID string
}

// Store persists audit events. Implementations: in-memory for tests and
// development, Postgres outbox for production (Kafka is the source of truth).
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]Event, error)
}

type AuditEvent string

const (
	// Application lifecycle events
	EventApplicationRegistered   AuditEvent = "application_registered"
	EventApplicationDeregistered AuditEvent = "application_deregistered"
	EventSyncModeChanged         AuditEvent = "sync_mode_changed"

	// Sync lifecycle events
	EventSyncStarted   AuditEvent = "sync_started"
	EventSyncCompleted AuditEvent = "sync_completed"
	EventSyncFailed    AuditEvent = "sync_failed"

	// Reconciliation events
	EventFulfillmentCreated AuditEvent = "fulfillment_created"
	EventFindingApplied     AuditEvent = "finding_applied"
	EventFindingSuppressed  AuditEvent = "finding_suppressed"
	EventFindingRejected    AuditEvent = "finding_rejected"

	// Human override events
	EventManualEditApplied AuditEvent = "manual_edit_applied"
	EventOverrideReverted  AuditEvent = "override_reverted"
)

// eventCategories maps each audit event to its category.
// Compliance: regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - human decisions that change the audit posture
	EventApplicationRegistered:   CategoryCompliance,
	EventApplicationDeregistered: CategoryCompliance,
	EventSyncModeChanged:         CategoryCompliance,
	EventManualEditApplied:       CategoryCompliance,
	EventOverrideReverted:        CategoryCompliance,

	// Security events - findings arriving through a closed door
	EventFindingRejected: CategorySecurity,

	// Operations events - routine sync activity, can be sampled
	EventSyncStarted:        CategoryOperations,
	EventSyncCompleted:      CategoryOperations,
	EventSyncFailed:         CategoryOperations,
	EventFulfillmentCreated: CategoryOperations,
	EventFindingApplied:     CategoryOperations,
	EventFindingSuppressed:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// OutboxEntry is a pending audit event awaiting relay to Kafka.
type OutboxEntry struct {
	ID        uuid.UUID
	Category  EventCategory
	EventType string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}
