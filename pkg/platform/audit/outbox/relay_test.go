package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "attest/pkg/platform/audit"
)

type fakeOutbox struct {
	mu        sync.Mutex
	entries   []audit.OutboxEntry
	published map[uuid.UUID]bool
}

func newFakeOutbox(entries ...audit.OutboxEntry) *fakeOutbox {
	return &fakeOutbox{entries: entries, published: make(map[uuid.UUID]bool)}
}

func (f *fakeOutbox) UnpublishedBatch(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.OutboxEntry
	for _, e := range f.entries {
		if len(out) == limit {
			break
		}
		if !f.published[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.published[id] = true
	}
	return nil
}

type fakeSink struct {
	mu       sync.Mutex
	got      []string
	failKeys map[string]error
}

func (f *fakeSink) Publish(_ context.Context, _ audit.EventCategory, key string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failKeys[key]; ok {
		return err
	}
	f.got = append(f.got, key)
	return nil
}

func entry(key string, category audit.EventCategory) audit.OutboxEntry {
	return audit.OutboxEntry{
		ID:       uuid.New(),
		Category: category,
		Key:      key,
		Payload:  []byte(`{}`),
	}
}

func TestRelay_DrainOnce(t *testing.T) {
	t.Run("publishes batch and marks entries", func(t *testing.T) {
		e1 := entry("app-1", audit.CategoryCompliance)
		e2 := entry("app-2", audit.CategoryOperations)
		outbox := newFakeOutbox(e1, e2)
		sink := &fakeSink{}
		relay := NewRelay(outbox, sink, slog.New(slog.DiscardHandler))

		require.NoError(t, relay.DrainOnce(context.Background()))

		assert.Equal(t, []string{"app-1", "app-2"}, sink.got)
		assert.True(t, outbox.published[e1.ID])
		assert.True(t, outbox.published[e2.ID])
	})

	t.Run("stops batch at first publish failure", func(t *testing.T) {
		e1 := entry("app-1", audit.CategoryCompliance)
		e2 := entry("app-2", audit.CategoryCompliance)
		e3 := entry("app-3", audit.CategoryCompliance)
		outbox := newFakeOutbox(e1, e2, e3)
		sink := &fakeSink{failKeys: map[string]error{"app-2": errors.New("broker down")}}
		relay := NewRelay(outbox, sink, slog.New(slog.DiscardHandler))

		require.NoError(t, relay.DrainOnce(context.Background()))

		// app-1 got through; app-2 failed; app-3 must wait so ordering holds.
		assert.Equal(t, []string{"app-1"}, sink.got)
		assert.True(t, outbox.published[e1.ID])
		assert.False(t, outbox.published[e2.ID])
		assert.False(t, outbox.published[e3.ID])
	})

	t.Run("retries unpublished entries on next drain", func(t *testing.T) {
		e1 := entry("app-1", audit.CategorySecurity)
		outbox := newFakeOutbox(e1)
		sink := &fakeSink{failKeys: map[string]error{"app-1": errors.New("broker down")}}
		relay := NewRelay(outbox, sink, slog.New(slog.DiscardHandler))

		require.NoError(t, relay.DrainOnce(context.Background()))
		assert.False(t, outbox.published[e1.ID])

		delete(sink.failKeys, "app-1")
		require.NoError(t, relay.DrainOnce(context.Background()))
		assert.Equal(t, []string{"app-1"}, sink.got)
		assert.True(t, outbox.published[e1.ID])
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		outbox := newFakeOutbox()
		sink := &fakeSink{}
		relay := NewRelay(outbox, sink, slog.New(slog.DiscardHandler))

		require.NoError(t, relay.DrainOnce(context.Background()))
		assert.Empty(t, sink.got)
	})

	t.Run("honors batch size", func(t *testing.T) {
		e1 := entry("app-1", audit.CategoryCompliance)
		e2 := entry("app-2", audit.CategoryCompliance)
		outbox := newFakeOutbox(e1, e2)
		sink := &fakeSink{}
		relay := NewRelay(outbox, sink, slog.New(slog.DiscardHandler), WithBatchSize(1))

		require.NoError(t, relay.DrainOnce(context.Background()))
		assert.Equal(t, []string{"app-1"}, sink.got)

		require.NoError(t, relay.DrainOnce(context.Background()))
		assert.Equal(t, []string{"app-1", "app-2"}, sink.got)
	})
}
