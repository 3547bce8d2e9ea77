package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Limiter backed by shared Redis counters, for multi-instance
// deployments. Increment is atomic: INCR plus an expiry set on the first
// hit of each window.
type Redis struct {
	client redis.UniversalClient
	prefix string
	policy Policy
}

// NewRedis creates a Redis-backed limiter. Keys are namespaced under the
// given prefix ("rl" when empty).
func NewRedis(client redis.UniversalClient, prefix string, policy Policy) *Redis {
	if prefix == "" {
		prefix = "rl"
	}
	return &Redis{client: client, prefix: prefix, policy: policy}
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + normalizeKey(key)
}

func (r *Redis) Check(ctx context.Context, key string) (Result, error) {
	k := r.key(key)

	count, err := r.client.Get(ctx, k).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Result{Remaining: r.policy.Max}, nil
		}
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.result(count, ttl), nil
}

func (r *Redis) Increment(ctx context.Context, key string) (Result, error) {
	k := r.key(key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// First hit of the window owns setting the expiry.
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.policy.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if ttl < 0 {
		ttl = r.policy.Window
	}
	return r.result(count, ttl), nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (r *Redis) result(count int64, resetIn time.Duration) Result {
	remaining := int64(r.policy.Max) - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Limited:   count > int64(r.policy.Max),
		Remaining: int(remaining),
		ResetIn:   resetIn,
	}
}
