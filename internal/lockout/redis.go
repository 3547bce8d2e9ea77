package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Tracker backed by shared Redis counters. The counter key
// carries a TTL that doubles as the failure window; when the count
// reaches the threshold the TTL is re-armed to the full lockout
// duration, so the lock runs its course from the locking attempt.
type Redis struct {
	client redis.UniversalClient
	prefix string
	config Config
}

// NewRedis creates a Redis-backed tracker. Keys are namespaced under the
// given prefix ("plk" when empty).
func NewRedis(client redis.UniversalClient, prefix string, cfg Config) *Redis {
	if prefix == "" {
		prefix = "plk"
	}
	return &Redis{client: client, prefix: prefix, config: cfg}
}

func (r *Redis) key(userID, deviceID string) string {
	return r.prefix + ":" + userID + ":" + deviceID
}

func (r *Redis) Status(ctx context.Context, userID, deviceID string) (Status, error) {
	k := r.key(userID, deviceID)

	count, err := r.client.Get(ctx, k).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	st := Status{Attempts: int(count)}
	if count >= int64(r.config.Threshold) {
		ttl, err := r.client.PTTL(ctx, k).Result()
		if err != nil {
			return Status{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if ttl > 0 {
			st.Locked = true
			st.LockedUntil = time.Now().Add(ttl)
		}
	}
	return st, nil
}

func (r *Redis) RecordFailure(ctx context.Context, userID, deviceID string) (Status, error) {
	k := r.key(userID, deviceID)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	switch {
	case count == 1:
		// First failure opens the counting window.
		if err := r.client.Expire(ctx, k, r.config.Duration).Err(); err != nil {
			return Status{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	case count == int64(r.config.Threshold):
		// The locking attempt re-arms the TTL so the lock lasts its full
		// duration from this moment.
		if err := r.client.Expire(ctx, k, r.config.Duration).Err(); err != nil {
			return Status{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	st := Status{Attempts: int(count)}
	if count >= int64(r.config.Threshold) {
		st.Locked = true
		st.LockedUntil = time.Now().Add(r.config.Duration)
	}
	return st, nil
}

func (r *Redis) Reset(ctx context.Context, userID, deviceID string) error {
	if err := r.client.Del(ctx, r.key(userID, deviceID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
