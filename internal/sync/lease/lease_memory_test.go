package lease

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

func TestInMemoryAcquireRelease(t *testing.T) {
	ctx := context.Background()
	appID := id.ApplicationID(uuid.New())
	other := id.ApplicationID(uuid.New())
	l := NewInMemory()

	token, err := l.Acquire(ctx, appID, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = l.Acquire(ctx, appID, time.Minute)
	assert.ErrorIs(t, err, sentinel.ErrLeaseHeld)

	_, err = l.Acquire(ctx, other, time.Minute)
	assert.NoError(t, err, "leases are per application")

	require.NoError(t, l.Release(ctx, appID, token))

	_, err = l.Acquire(ctx, appID, time.Minute)
	assert.NoError(t, err, "released lease is free again")
}

func TestInMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	appID := id.ApplicationID(uuid.New())
	l := NewInMemory()

	current := time.Now()
	l.now = func() time.Time { return current }

	staleToken, err := l.Acquire(ctx, appID, time.Minute)
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	freshToken, err := l.Acquire(ctx, appID, time.Minute)
	require.NoError(t, err, "expired lease is treated as free")

	assert.ErrorIs(t, l.Release(ctx, appID, staleToken), ErrLeaseLost,
		"expired holder cannot free the successor's lease")
	assert.NoError(t, l.Release(ctx, appID, freshToken))
}

func TestInMemoryWrongToken(t *testing.T) {
	ctx := context.Background()
	appID := id.ApplicationID(uuid.New())
	l := NewInMemory()

	token, err := l.Acquire(ctx, appID, time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, l.Release(ctx, appID, "bogus"), ErrLeaseLost)

	_, err = l.Acquire(ctx, appID, time.Minute)
	assert.ErrorIs(t, err, sentinel.ErrLeaseHeld, "failed release leaves the lease held")

	require.NoError(t, l.Release(ctx, appID, token))
}

func TestInMemoryConcurrentAcquire(t *testing.T) {
	ctx := context.Background()
	appID := id.ApplicationID(uuid.New())
	l := NewInMemory()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, err := l.Acquire(ctx, appID, time.Minute); err == nil {
				wins <- token
			}
		}()
	}
	wg.Wait()
	close(wins)

	var tokens []string
	for token := range wins {
		tokens = append(tokens, token)
	}
	require.Len(t, tokens, 1, "exactly one concurrent acquire wins")
	require.NoError(t, l.Release(ctx, appID, tokens[0]))
}
