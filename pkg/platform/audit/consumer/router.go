// Package consumer materializes relayed audit events into the queryable
// audit_events table. Kafka is the source of truth; this package rebuilds
// the read side from the per-category topics.
package consumer

import (
	"context"
	"log/slog"

	"attest/internal/platform/kafka/consumer"
)

// TopicHandler handles messages from one topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches messages to per-topic handlers. Audit categories carry
// different loss tolerances, so each topic gets its own handler.
type Router struct {
	handlers map[string]TopicHandler
	fallback TopicHandler
	logger   *slog.Logger
}

// NewRouter creates a topic router. The fallback handler, when not nil,
// receives messages from unregistered topics.
func NewRouter(logger *slog.Logger, fallback TopicHandler) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a topic.
func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

// Handle routes the message to its topic handler. Messages for unknown
// topics without a fallback are committed so they do not wedge the group.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, msg)
		}
		r.logger.Warn("no handler for audit topic, skipping message",
			slog.String("topic", msg.Topic),
			slog.String("key", string(msg.Key)))
		return nil
	}
	return handler.Handle(ctx, msg)
}
