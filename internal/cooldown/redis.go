package cooldown

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix namespaces cooldown keys in a shared Redis.
const DefaultKeyPrefix = "leaderboard:cooldown:"

// Redis is a Limiter backed by a Redis key per identity. SET NX PX makes the
// check and the record a single server-side operation, so replicas sharing
// the same Redis agree on who was first.
//
// Expiry is driven by the Redis clock, not by the now argument.
type Redis struct {
	client redis.UniversalClient
	window time.Duration
	prefix string
}

// NewRedis returns a Redis limiter. Empty prefix uses DefaultKeyPrefix.
func NewRedis(client redis.UniversalClient, window time.Duration, prefix string) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, window: window, prefix: prefix}
}

// Allow stores now under the identity key unless a key already exists.
// Connection and command failures are returned to the caller.
func (r *Redis) Allow(ctx context.Context, identity string, now time.Time) (Decision, error) {
	key := r.prefix + identity
	ok, err := r.client.SetNX(ctx, key, strconv.FormatInt(now.UnixMilli(), 10), r.window).Result()
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	ttl, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if ttl <= 0 {
		// Key expired between the two calls or has no TTL; report the full window.
		ttl = r.window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}
