package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
)

// Materializer writes relayed events into the queryable audit_events table.
// Implemented by the Postgres audit store; inserts are idempotent by event
// ID so redelivered messages are harmless.
type Materializer interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// payload mirrors the outbox JSON written by the Postgres audit store.
type payload struct {
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

// decode unpacks a relayed payload into the event and its outbox-assigned
// ID. IDs come from the payload, not the message key: the producer keys by
// application so per-application ordering survives partitioning.
func decode(value []byte) (uuid.UUID, audit.Event, error) {
	var p payload
	if err := json.Unmarshal(value, &p); err != nil {
		return uuid.Nil, audit.Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}

	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		return uuid.Nil, audit.Event{}, fmt.Errorf("parse audit event id %q: %w", p.ID, err)
	}

	event := audit.Event{
		Category:  audit.EventCategory(p.Category),
		Action:    p.Action,
		Actor:     p.Actor,
		Source:    p.Source,
		Decision:  p.Decision,
		Reason:    p.Reason,
		RequestID: p.RequestID,
	}

	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	} else {
		event.Timestamp = time.Now()
	}

	if p.ApplicationID != "" {
		if appID, err := id.ParseApplicationID(p.ApplicationID); err == nil {
			event.ApplicationID = appID
		}
	}
	if p.RequirementID != "" {
		if reqID, err := id.ParseRequirementID(p.RequirementID); err == nil {
			event.RequirementID = reqID
		}
	}

	return eventID, event, nil
}
