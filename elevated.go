package authcore

import (
	"sync"
	"time"
)

// elevatedAccessTracker remembers when each user last re-verified their
// password for sensitive operations. State is ephemeral and in-memory;
// expiry is computed lazily from verifiedAt + ttl at check time, never
// by a timer.
type elevatedAccessTracker struct {
	mu       sync.Mutex
	verified map[string]time.Time
	now      func() time.Time
}

func newElevatedAccessTracker() *elevatedAccessTracker {
	return &elevatedAccessTracker{
		verified: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (t *elevatedAccessTracker) recordVerification(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.verified[userID] = t.now()
}

func (t *elevatedAccessTracker) isValid(userID string, ttl time.Duration) bool {
	_, ok := t.validUntil(userID, ttl)
	return ok
}

func (t *elevatedAccessTracker) validUntil(userID string, ttl time.Duration) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	verifiedAt, ok := t.verified[userID]
	if !ok {
		return time.Time{}, false
	}
	until := verifiedAt.Add(ttl)
	if !t.now().Before(until) {
		delete(t.verified, userID)
		return time.Time{}, false
	}
	return until, true
}

func (t *elevatedAccessTracker) clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.verified, userID)
}
