package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
	txcontext "attest/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the audit_outbox table inside the caller's transaction
// and published to Kafka by the outbox relay. Kafka is the source of truth for
// audit events; audit_events is a queryable materialization.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for proper deserialization by consumers.
type outboxPayload struct {
	ID            string `json:"ID"`
	Category      string `json:"Category"`
	Timestamp     string `json:"Timestamp"`
	ApplicationID string `json:"ApplicationID,omitempty"`
	RequirementID string `json:"RequirementID,omitempty"`
	Action        string `json:"Action"`
	Actor         string `json:"Actor,omitempty"`
	Source        string `json:"Source,omitempty"`
	Decision      string `json:"Decision,omitempty"`
	Reason        string `json:"Reason,omitempty"`
	RequestID     string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
// When the context carries a transaction the outbox row commits atomically
// with the domain write.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Actor:     event.Actor,
		Source:    event.Source,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	if !event.ApplicationID.IsNil() {
		payload.ApplicationID = event.ApplicationID.String()
	}
	if !event.RequirementID.IsNil() {
		payload.RequirementID = event.RequirementID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Events partition by application so per-application ordering survives
	// the trip through Kafka.
	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.ApplicationID.IsNil() {
		aggregateType = "application"
		aggregateID = event.ApplicationID.String()
	}

	query := `
		INSERT INTO audit_outbox (id, category, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		string(category),
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID inserts an audit event into the audit_events table with a specific ID.
// Used by consumers to materialize events for querying.
// This is idempotent - duplicate inserts are ignored via ON CONFLICT DO NOTHING.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, application_id, requirement_id,
			action, actor, source, decision, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	var appID, reqID *uuid.UUID
	if !event.ApplicationID.IsNil() {
		u := uuid.UUID(event.ApplicationID)
		appID = &u
	}
	if !event.RequirementID.IsNil() {
		u := uuid.UUID(event.RequirementID)
		reqID = &u
	}

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		appID,
		reqID,
		event.Action,
		event.Actor,
		event.Source,
		event.Decision,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByApplication returns events for a specific application.
func (s *Store) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, application_id, requirement_id,
		       action, actor, source, decision, reason, request_id
		FROM audit_events
		WHERE application_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, application_id, requirement_id,
		       action, actor, source, decision, reason, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// scanEvents scans multiple rows into an audit.Event slice.
func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category      string
			event         audit.Event
			appIDNullable *uuid.UUID
			reqIDNullable *uuid.UUID
		)

		err := rows.Scan(
			&category,
			&event.Timestamp,
			&appIDNullable,
			&reqIDNullable,
			&event.Action,
			&event.Actor,
			&event.Source,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = audit.EventCategory(category)
		if appIDNullable != nil {
			event.ApplicationID = id.ApplicationID(*appIDNullable)
		}
		if reqIDNullable != nil {
			event.RequirementID = id.RequirementID(*reqIDNullable)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

// -----------------------------------------------------------------------------
// Outbox relay support
// -----------------------------------------------------------------------------

// UnpublishedBatch claims up to limit unpublished outbox entries.
// FOR UPDATE SKIP LOCKED lets multiple relay replicas work the outbox
// without stepping on each other.
func (s *Store) UnpublishedBatch(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	query := `
		SELECT id, category, aggregate_id, event_type, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var (
			entry    audit.OutboxEntry
			category string
		)
		if err := rows.Scan(&entry.ID, &category, &entry.Key, &entry.EventType, &entry.Payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entry.Category = audit.EventCategory(category)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps outbox entries as relayed to Kafka.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2)`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
