package consumer

import (
	"context"
	"log/slog"

	"attest/internal/platform/kafka/consumer"
)

// OpsHandler materializes operational events best-effort. Nothing here is
// worth wedging a partition over: every outcome commits.
type OpsHandler struct {
	store  Materializer
	logger *slog.Logger
}

// NewOpsHandler creates an ops event handler.
func NewOpsHandler(store Materializer, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{store: store, logger: logger}
}

// Handle processes one operational event.
func (h *OpsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := decode(msg.Value)
	if err != nil {
		h.logger.Debug("undecodable ops audit event",
			slog.String("key", string(msg.Key)),
			slog.String("error", err.Error()))
		return nil
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		h.logger.Warn("ops audit event not materialized",
			slog.String("event_id", eventID.String()),
			slog.String("action", event.Action),
			slog.String("error", err.Error()))
		return nil
	}

	return nil
}
