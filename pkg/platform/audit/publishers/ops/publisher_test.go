package ops

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "attest/pkg/platform/audit"
	"attest/pkg/platform/circuit"
)

// stubEmitter fails its first fail calls, then records every event.
type stubEmitter struct {
	calls int
	fail  int
	seen  []audit.Event
}

func (s *stubEmitter) Emit(_ context.Context, event audit.Event) error {
	s.calls++
	if s.calls <= s.fail {
		return errors.New("store down")
	}
	s.seen = append(s.seen, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_CompliancePassesThroughPolicy(t *testing.T) {
	next := &stubEmitter{}
	pub := NewPublisher(next, WithSampler(NewSampler(0)), WithLogger(testLogger()))

	err := pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventManualEditApplied),
	})
	require.NoError(t, err)
	require.Len(t, next.seen, 1)
	assert.Equal(t, audit.CategoryCompliance, next.seen[0].Category)
}

func TestPublisher_SecurityPassesThroughPolicy(t *testing.T) {
	next := &stubEmitter{}
	pub := NewPublisher(next, WithSampler(NewSampler(0)), WithLogger(testLogger()))

	err := pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventFindingRejected),
	})
	require.NoError(t, err)
	require.Len(t, next.seen, 1)
	assert.Equal(t, audit.CategorySecurity, next.seen[0].Category)
}

func TestPublisher_SamplesOutOperationsEvents(t *testing.T) {
	next := &stubEmitter{}
	pub := NewPublisher(next, WithSampler(NewSampler(0)), WithLogger(testLogger()))

	err := pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventSyncStarted),
	})
	require.NoError(t, err, "a sampled-out event is an intentional drop")
	assert.Zero(t, next.calls)
}

func TestPublisher_PerActionRateOverridesDefault(t *testing.T) {
	next := &stubEmitter{}
	sampler := NewSampler(0)
	sampler.SetRate(string(audit.EventFindingApplied), 1)
	pub := NewPublisher(next, WithSampler(sampler), WithLogger(testLogger()))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventSyncStarted),
	}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventFindingApplied),
	}))

	require.Len(t, next.seen, 1)
	assert.Equal(t, string(audit.EventFindingApplied), next.seen[0].Action)
}

func TestPublisher_BreakerShedsAfterFailures(t *testing.T) {
	next := &stubEmitter{fail: 1000}
	breaker := circuit.New("test", circuit.WithFailureThreshold(3))
	pub := NewPublisher(next, WithBreaker(breaker), WithLogger(testLogger()))

	for range 3 {
		err := pub.Emit(context.Background(), audit.Event{
			Action: string(audit.EventSyncCompleted),
		})
		require.Error(t, err, "persistence failures surface to the caller")
	}
	require.True(t, breaker.IsOpen())

	// Shed without touching the store.
	err := pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventSyncCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestPublisher_ProbeClosesBreaker(t *testing.T) {
	next := &stubEmitter{fail: 2}
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1))
	pub := NewPublisher(next, WithBreaker(breaker), WithLogger(testLogger()))

	for range 2 {
		_ = pub.Emit(context.Background(), audit.Event{
			Action: string(audit.EventSyncStarted),
		})
	}
	require.True(t, breaker.IsOpen())

	// The store has recovered; every probeInterval-th event probes it and
	// the first success closes the breaker.
	for range probeInterval {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			Action: string(audit.EventSyncStarted),
		}))
	}
	require.False(t, breaker.IsOpen())
	require.Len(t, next.seen, 1)

	// Closed again: events flow without shedding.
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action: string(audit.EventSyncCompleted),
	}))
	assert.Len(t, next.seen, 2)
}
