// Package publisher emits audit events to a store, synchronously or through a
// bounded buffer.
//
// Synchronous mode is used for compliance-significant actions where the write
// must succeed before the operation completes (fail-closed). Async mode suits
// high-volume operational events where dropping under pressure is acceptable.
package publisher

import (
	"context"
	"errors"
	"sync"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
	"attest/pkg/requestcontext"
)

// ErrBufferFull is returned when async emission cannot keep up.
// Callers treat it as a drop signal, not a fatal error.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher writes audit events to a Store.
type Publisher struct {
	store audit.Store

	inbox  chan audit.Event
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to buffered async mode with the given
// channel capacity. Close drains remaining events before returning.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// NewPublisher constructs a Publisher. Without options the publisher is
// synchronous: Emit appends directly to the store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	// Store writes use a background context: the emitting request may be
	// long gone by the time the event is persisted.
	for {
		select {
		case event := <-p.inbox:
			_ = p.store.Append(context.Background(), event)
		case <-p.done:
			// Flush whatever is still buffered, then exit.
			for {
				select {
				case event := <-p.inbox:
					_ = p.store.Append(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit publishes an audit event. The timestamp is filled from the
// request-scoped clock when unset, the category from the action.
//
// In async mode a full buffer returns ErrBufferFull rather than blocking the
// caller's critical path.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case <-p.done:
		return errors.New("audit publisher closed")
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.inbox <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// List reads back events for an application, in append order.
func (p *Publisher) List(ctx context.Context, appID id.ApplicationID) ([]audit.Event, error) {
	return p.store.ListByApplication(ctx, appID)
}

// Close stops accepting events and drains the async buffer.
// Safe to call multiple times.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}
