//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var redisBox struct {
	once sync.Once
	url  string
	err  error
}

// RedisClient returns a client against the shared Redis container. The client
// is closed when the test finishes. Lease keys embed application IDs, so
// suites sharing the container do not collide.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()

	redisBox.once.Do(func() {
		ctx := context.Background()

		container, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			redisBox.err = err
			return
		}

		url, err := container.ConnectionString(ctx)
		if err != nil {
			redisBox.err = err
			return
		}
		redisBox.url = url
	})
	if redisBox.err != nil {
		t.Fatalf("failed to start redis container: %v", redisBox.err)
	}

	opts, err := redis.ParseURL(redisBox.url)
	if err != nil {
		t.Fatalf("failed to parse redis URL: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
