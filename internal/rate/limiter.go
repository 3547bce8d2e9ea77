package rate

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrBackendUnavailable indicates the limiter backend is unreachable.
// Callers fail open on this error: availability of the guarded flow is
// prioritized over request-volume defense.
var ErrBackendUnavailable = errors.New("rate limiter backend unavailable")

// Policy is a fixed window budget: at most Max requests per Window.
type Policy struct {
	Max    int
	Window time.Duration
}

// Result reports the limiter's view of a key after Check or Increment.
type Result struct {
	Limited   bool
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts requests per identifier over a rolling window. The two
// implementations (in-process map, Redis) are interchangeable: callers
// must not behave differently depending on which one is injected.
type Limiter interface {
	// Check reports the current state of the key without consuming budget.
	Check(ctx context.Context, key string) (Result, error)
	// Increment consumes one unit of budget and reports the new state.
	// The backend increment is atomic.
	Increment(ctx context.Context, key string) (Result, error)
	// Reset clears all counted requests for the key.
	Reset(ctx context.Context, key string) error
}

// normalizeKey lower-cases identifiers so "User@X.com" and "user@x.com"
// share one budget.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
