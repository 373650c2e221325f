package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"attest/internal/platform/kafka/consumer"
)

// ComplianceHandler materializes compliance events. These carry regulatory
// weight: store failures are returned so the message is redelivered rather
// than lost, while malformed messages are logged loudly and skipped because
// redelivery cannot fix them.
type ComplianceHandler struct {
	store  Materializer
	logger *slog.Logger
}

// NewComplianceHandler creates a compliance event handler.
func NewComplianceHandler(store Materializer, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{store: store, logger: logger}
}

// Handle processes one compliance event.
func (h *ComplianceHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := decode(msg.Value)
	if err != nil {
		h.logger.Error("CRITICAL: undecodable compliance audit event",
			slog.String("key", string(msg.Key)),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()))
		return nil
	}

	if event.Action == "" || event.ApplicationID.IsNil() {
		h.logger.Error("CRITICAL: compliance audit event missing action or application",
			slog.String("event_id", eventID.String()),
			slog.String("action", event.Action))
		return nil
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("materialize compliance event %s: %w", eventID, err)
	}

	h.logger.Debug("compliance audit event materialized",
		slog.String("event_id", eventID.String()),
		slog.String("action", event.Action),
		slog.String("application_id", event.ApplicationID.String()))
	return nil
}
