//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

var broker struct {
	once sync.Once
	addr string
	err  error
}

// KafkaBroker returns the seed broker of the shared Redpanda container.
// Suites isolate through distinct topic prefixes and consumer groups.
func KafkaBroker(t *testing.T) string {
	t.Helper()

	broker.once.Do(func() {
		ctx := context.Background()

		container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.1")
		if err != nil {
			broker.err = err
			return
		}

		addr, err := container.KafkaSeedBroker(ctx)
		if err != nil {
			broker.err = err
			return
		}
		broker.addr = addr
	})
	if broker.err != nil {
		t.Fatalf("failed to start redpanda container: %v", broker.err)
	}
	return broker.addr
}
