package lockout

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type memoryRecord struct {
	attempts    int
	lastAttempt time.Time
	lockedUntil time.Time
}

// Memory is a single-process Tracker. Records expire lazily on access;
// a background sweep evicts stale entries so abandoned keys do not
// accumulate.
type Memory struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*memoryRecord

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMemory starts a memory tracker and its sweep goroutine. Call Stop
// when done.
func NewMemory(cfg Config) *Memory {
	m := &Memory{
		config:  cfg,
		now:     time.Now,
		records: make(map[string]*memoryRecord),
		stopCh:  make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Stop terminates the sweep goroutine. Idempotent.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Memory) Status(_ context.Context, userID, deviceID string) (Status, error) {
	key := pairKey(userID, deviceID)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.records[key]
	if rec == nil {
		return Status{}, nil
	}
	if m.expired(rec, now) {
		delete(m.records, key)
		return Status{}, nil
	}
	return m.status(rec, now), nil
}

func (m *Memory) RecordFailure(_ context.Context, userID, deviceID string) (Status, error) {
	key := pairKey(userID, deviceID)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.records[key]
	if rec != nil && m.expired(rec, now) {
		delete(m.records, key)
		rec = nil
	}
	if rec == nil {
		rec = &memoryRecord{}
		m.records[key] = rec
	}

	// Failures while locked are counted but cannot extend the lock.
	if !rec.lockedUntil.IsZero() && now.Before(rec.lockedUntil) {
		rec.lastAttempt = now
		return m.status(rec, now), nil
	}

	rec.attempts++
	rec.lastAttempt = now
	if rec.attempts >= m.config.Threshold {
		rec.lockedUntil = now.Add(m.config.Duration)
	}
	return m.status(rec, now), nil
}

func (m *Memory) Reset(_ context.Context, userID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, pairKey(userID, deviceID))
	return nil
}

// expired reports whether the record has aged out: a lock that has run
// its course, or an unlocked failure streak older than the window.
func (m *Memory) expired(rec *memoryRecord, now time.Time) bool {
	if !rec.lockedUntil.IsZero() {
		return !now.Before(rec.lockedUntil)
	}
	return now.Sub(rec.lastAttempt) > m.config.Duration
}

func (m *Memory) status(rec *memoryRecord, now time.Time) Status {
	return Status{
		Locked:      !rec.lockedUntil.IsZero() && now.Before(rec.lockedUntil),
		Attempts:    rec.attempts,
		LockedUntil: rec.lockedUntil,
	}
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, rec := range m.records {
		if m.expired(rec, now) {
			delete(m.records, key)
		}
	}
}

// SetNow overrides the tracker clock. Test hook.
func (m *Memory) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
