// Package outbox relays audit events from the Postgres outbox table to Kafka.
// Writes land in the outbox inside the same transaction as the state change;
// the relay drains the table afterwards, so an event is published at least
// once even if the process dies between commit and produce.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "attest/pkg/platform/audit"
)

// Outbox is the store side of the relay.
type Outbox interface {
	// UnpublishedBatch returns up to limit entries that have not been
	// relayed yet, oldest first. Entries stay locked for the caller's
	// transaction so concurrent relays do not double-publish.
	UnpublishedBatch(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	// MarkPublished records that the given entries reached the sink.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Sink receives relayed entries. Implemented by the Kafka producer.
type Sink interface {
	Publish(ctx context.Context, category audit.EventCategory, key string, payload []byte) error
}

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Relay moves outbox entries to the sink on a fixed interval.
type Relay struct {
	outbox    Outbox
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// Option configures a Relay.
type Option func(*Relay)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize overrides how many entries are drained per poll.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewRelay wires an outbox to a sink.
func NewRelay(outbox Outbox, sink Sink, logger *slog.Logger, opts ...Option) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		outbox:    outbox,
		sink:      sink,
		logger:    logger,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until the context is cancelled. Errors are logged and retried on
// the next tick; a stuck sink must not take the engine down with it.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("audit outbox relay started",
		slog.Duration("interval", r.interval),
		slog.Int("batch_size", r.batchSize))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("audit outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.logger.Error("audit outbox drain failed", slog.String("error", err.Error()))
			}
		}
	}
}

// DrainOnce publishes one batch. Entries that fail to publish are left
// unmarked and retried next tick; entries after a failure in the same batch
// are also left so the per-key order seen by consumers is preserved.
func (r *Relay) DrainOnce(ctx context.Context) error {
	entries, err := r.outbox.UnpublishedBatch(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := r.sink.Publish(ctx, entry.Category, entry.Key, entry.Payload); err != nil {
			r.logger.Error("audit event publish failed",
				slog.String("entry_id", entry.ID.String()),
				slog.String("category", string(entry.Category)),
				slog.String("error", err.Error()))
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return nil
	}
	if err := r.outbox.MarkPublished(ctx, published); err != nil {
		return err
	}
	r.logger.Debug("audit events relayed", slog.Int("count", len(published)))
	return nil
}
