package rate

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// Memory is a single-process Limiter backed by a map. Entries expire
// lazily on access and are additionally evicted by a periodic sweep so
// idle keys do not accumulate. The sweep runs independently of request
// handling and never blocks it.
type Memory struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMemory starts a memory limiter with the given policy and its
// background sweep goroutine. Call Stop when done.
func NewMemory(policy Policy) *Memory {
	m := &Memory{
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]*memoryEntry),
		stopCh:  make(chan struct{}),
	}
	go m.sweepLoop(defaultSweepInterval)
	return m
}

// Stop terminates the sweep goroutine. Idempotent.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Memory) Check(_ context.Context, key string) (Result, error) {
	key = normalizeKey(key)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		if ok {
			delete(m.entries, key)
		}
		return Result{Remaining: m.policy.Max}, nil
	}
	return m.result(e, now), nil
}

func (m *Memory) Increment(_ context.Context, key string) (Result, error) {
	key = normalizeKey(key)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memoryEntry{resetAt: now.Add(m.policy.Window)}
		m.entries[key] = e
	}
	e.count++
	return m.result(e, now), nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	key = normalizeKey(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *Memory) result(e *memoryEntry, now time.Time) Result {
	remaining := m.policy.Max - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Limited:   e.count > m.policy.Max,
		Remaining: remaining,
		ResetIn:   e.resetAt.Sub(now),
	}
}

func (m *Memory) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
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

	for key, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, key)
		}
	}
}
