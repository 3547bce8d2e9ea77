package lockout

import (
	"context"
	"errors"
	"time"
)

// ErrBackendUnavailable indicates the lockout backend is unreachable.
var ErrBackendUnavailable = errors.New("lockout backend unavailable")

// Config holds the lockout thresholds. A tracked key moves from OK to
// LOCKED exactly when a failure pushes its count to Threshold, and stays
// locked for Duration.
type Config struct {
	Threshold int
	Duration  time.Duration
}

// Status is the tracker's view of one (userID, deviceID) key.
type Status struct {
	Locked      bool
	Attempts    int
	LockedUntil time.Time
}

// Tracker counts failed credential attempts per (userID, deviceID) pair.
// It is independent of request-rate limiting: different key space,
// different TTL, different semantics. Expiry is evaluated lazily on the
// next access, never by a timer on the request path.
type Tracker interface {
	// Status reports the current state without recording anything.
	Status(ctx context.Context, userID, deviceID string) (Status, error)
	// RecordFailure counts one failed attempt and reports the new state.
	// Further failures while locked do not extend the lock.
	RecordFailure(ctx context.Context, userID, deviceID string) (Status, error)
	// Reset returns the key to the OK state, as after a successful
	// authentication.
	Reset(ctx context.Context, userID, deviceID string) error
}

func pairKey(userID, deviceID string) string {
	return userID + "\x1f" + deviceID
}
