package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

const leaseKeyPrefix = "sync:lease:"

// releaseScript deletes the lease only while it is still held under the
// caller's token. GET+DEL must be atomic or an expired holder could free a
// successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Redis-backed lease for multi-replica deployments. SET NX PX
// makes acquisition atomic across instances; expiry is enforced by Redis.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed lease. Client lifecycle is managed by
// the caller.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func leaseKey(appID id.ApplicationID) string {
	return leaseKeyPrefix + appID.String()
}

// Acquire takes the application's lease for ttl. Returns the release token,
// or sentinel.ErrLeaseHeld when another holder has it.
func (l *Redis) Acquire(ctx context.Context, appID id.ApplicationID, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, leaseKey(appID), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquiring sync lease: %w", err)
	}
	if !ok {
		return "", sentinel.ErrLeaseHeld
	}
	return token, nil
}

// Release frees the lease if it is still held under token.
func (l *Redis) Release(ctx context.Context, appID id.ApplicationID, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{leaseKey(appID)}, token).Int()
	if err != nil {
		return fmt.Errorf("releasing sync lease: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}
