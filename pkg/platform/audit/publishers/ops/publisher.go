// Package ops applies sampling and load shedding to operations-category
// audit events. Compliance and security events pass through untouched and
// keep their fail-closed semantics.
package ops

import (
	"context"
	"log/slog"
	"sync/atomic"

	audit "attest/pkg/platform/audit"
	"attest/pkg/platform/circuit"
)

// probeInterval is how many shed candidates let one event through to test
// an open breaker.
const probeInterval = 10

// Emitter is the downstream publisher.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Publisher routes audit events by category. Operations events are counted,
// sampled and breaker-gated before they reach the store; everything else is
// forwarded as-is.
type Publisher struct {
	next    Emitter
	sampler *Sampler
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
	probes  atomic.Uint64
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the logger for breaker transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithSampler replaces the default keep-everything sampler.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

// WithBreaker replaces the default audit store breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// NewPublisher wraps the next emitter in the operational policy.
func NewPublisher(next Emitter, opts ...Option) *Publisher {
	p := &Publisher{
		next:    next,
		sampler: NewSampler(1),
		breaker: circuit.New("audit-store"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit forwards the event unless the operational policy drops it. A nil
// return with no store write means the drop was intentional; persistence
// errors are returned so callers can log them.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.Category != audit.CategoryOperations {
		return p.next.Emit(ctx, event)
	}

	if p.metrics != nil {
		p.metrics.Tracked.Inc()
	}
	if !p.sampler.Keep(event.Action) {
		if p.metrics != nil {
			p.metrics.Sampled.Inc()
		}
		return nil
	}
	if p.breaker.IsOpen() && !p.probeDue() {
		if p.metrics != nil {
			p.metrics.Shed.Inc()
		}
		return nil
	}

	if err := p.next.Emit(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.PersistFailed.Inc()
		}
		if _, change := p.breaker.RecordFailure(); change.Opened {
			if p.metrics != nil {
				p.metrics.BreakerState.Set(1)
			}
			p.logger.WarnContext(ctx, "audit store breaker opened, shedding operations events",
				slog.String("breaker", p.breaker.Name()),
				slog.String("error", err.Error()))
		}
		return err
	}

	if _, change := p.breaker.RecordSuccess(); change.Closed {
		if p.metrics != nil {
			p.metrics.BreakerState.Set(0)
		}
		p.logger.InfoContext(ctx, "audit store breaker closed",
			slog.String("breaker", p.breaker.Name()))
	}
	return nil
}

// probeDue spaces out attempts against an open breaker so recovery is
// noticed without readmitting the full event volume.
func (p *Publisher) probeDue() bool {
	return p.probes.Add(1)%probeInterval == 0
}
