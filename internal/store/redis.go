package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jagaleanoob/fast-limiter/internal/ratelimit"
)

// Redis is an external shared implementation of ratelimit.Store. TTLs are
// delegated to redis key expiry. A Get followed by a Set is NOT atomic:
// concurrent writers in different processes can race, which is the accepted
// best-effort tier for this store; counter updates should go through
// Increment instead, which is atomic.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a redis-backed store. All keys are namespaced under
// "ratelimit:".
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		prefix: "ratelimit:",
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ratelimit.ErrNotFound
		}

		return "", err
	}

	return value, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Increment atomically adds one to the counter at key and refreshes its TTL
// in the same transaction. Redis restarts expired keys at 1 natively.
func (r *Redis) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()

	counter := pipe.Incr(ctx, r.prefix+key)
	if ttl > 0 {
		pipe.Expire(ctx, r.prefix+key, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return counter.Val(), nil
}

var (
	_ ratelimit.Store       = (*Redis)(nil)
	_ ratelimit.Incrementer = (*Redis)(nil)
)
