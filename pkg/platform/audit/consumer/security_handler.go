package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"attest/internal/platform/kafka/consumer"
)

// SecurityHandler materializes security events, findings that arrived
// through a closed door. Store failures are retried via redelivery; these
// events feed alerting and must not be dropped quietly.
type SecurityHandler struct {
	store  Materializer
	logger *slog.Logger
}

// NewSecurityHandler creates a security event handler.
func NewSecurityHandler(store Materializer, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{store: store, logger: logger}
}

// Handle processes one security event.
func (h *SecurityHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := decode(msg.Value)
	if err != nil {
		h.logger.Warn("undecodable security audit event",
			slog.String("key", string(msg.Key)),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()))
		return nil
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("materialize security event %s: %w", eventID, err)
	}

	h.logger.Debug("security audit event materialized",
		slog.String("event_id", eventID.String()),
		slog.String("action", event.Action),
		slog.String("source", event.Source))
	return nil
}
