package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryWindow(t *testing.T) {
	m := NewMemory(Policy{Max: 3, Window: time.Minute})
	defer m.Stop()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := m.Increment(ctx, "key")
		if err != nil {
			t.Fatalf("Increment %d: %v", i, err)
		}
		if res.Limited {
			t.Fatalf("limited at attempt %d", i)
		}
		if want := 3 - i; res.Remaining != want {
			t.Errorf("attempt %d: remaining = %d, want %d", i, res.Remaining, want)
		}
	}

	res, err := m.Increment(ctx, "key")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if !res.Limited {
		t.Fatal("not limited past the budget")
	}
	if res.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", res.Remaining)
	}
}

func TestMemoryCheckDoesNotCount(t *testing.T) {
	m := NewMemory(Policy{Max: 1, Window: time.Minute})
	defer m.Stop()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := m.Check(ctx, "key")
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if res.Limited {
			t.Fatal("Check alone triggered the limit")
		}
	}
}

func TestMemoryWindowExpiry(t *testing.T) {
	m := NewMemory(Policy{Max: 1, Window: time.Minute})
	defer m.Stop()
	ctx := context.Background()

	current := time.Now()
	m.now = func() time.Time { return current }

	if _, err := m.Increment(ctx, "key"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	res, _ := m.Increment(ctx, "key")
	if !res.Limited {
		t.Fatal("not limited within the window")
	}

	current = current.Add(time.Minute + time.Second)
	res, err := m.Increment(ctx, "key")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if res.Limited {
		t.Fatal("still limited after the window elapsed")
	}
}

func TestMemoryReset(t *testing.T) {
	m := NewMemory(Policy{Max: 1, Window: time.Minute})
	defer m.Stop()
	ctx := context.Background()

	m.Increment(ctx, "key")
	m.Increment(ctx, "key")
	if err := m.Reset(ctx, "key"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := m.Increment(ctx, "key")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if res.Limited {
		t.Fatal("limited after reset")
	}
}

func TestMemoryKeysAreCaseInsensitive(t *testing.T) {
	m := NewMemory(Policy{Max: 1, Window: time.Minute})
	defer m.Stop()
	ctx := context.Background()

	m.Increment(ctx, "User@Example.com")
	res, err := m.Increment(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if !res.Limited {
		t.Fatal("differently cased keys counted separately")
	}
}

func TestMemorySweepEvictsExpired(t *testing.T) {
	m := NewMemory(Policy{Max: 1, Window: time.Minute})
	defer m.Stop()
	ctx := context.Background()

	current := time.Now()
	m.now = func() time.Time { return current }
	m.Increment(ctx, "key")

	current = current.Add(2 * time.Minute)
	m.sweep()

	m.mu.Lock()
	n := len(m.entries)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("sweep left %d entries", n)
	}
}

func newRedisLimiter(t *testing.T, policy Policy) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, "rl", policy), mr
}

func TestRedisWindow(t *testing.T) {
	r, _ := newRedisLimiter(t, Policy{Max: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := r.Increment(ctx, "key")
		if err != nil {
			t.Fatalf("Increment %d: %v", i, err)
		}
		if res.Limited {
			t.Fatalf("limited at attempt %d", i)
		}
	}

	res, err := r.Increment(ctx, "key")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if !res.Limited {
		t.Fatal("not limited past the budget")
	}

	res, err = r.Check(ctx, "key")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Limited {
		t.Fatal("Check disagrees with Increment")
	}
}

func TestRedisWindowExpiry(t *testing.T) {
	r, mr := newRedisLimiter(t, Policy{Max: 1, Window: time.Minute})
	ctx := context.Background()

	r.Increment(ctx, "key")
	res, _ := r.Increment(ctx, "key")
	if !res.Limited {
		t.Fatal("not limited within the window")
	}

	mr.FastForward(time.Minute + time.Second)

	res, err := r.Increment(ctx, "key")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if res.Limited {
		t.Fatal("still limited after the window elapsed")
	}
}

func TestRedisCheckUnknownKey(t *testing.T) {
	r, _ := newRedisLimiter(t, Policy{Max: 5, Window: time.Minute})

	res, err := r.Check(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Limited || res.Remaining != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRedisReset(t *testing.T) {
	r, _ := newRedisLimiter(t, Policy{Max: 1, Window: time.Minute})
	ctx := context.Background()

	r.Increment(ctx, "key")
	r.Increment(ctx, "key")
	if err := r.Reset(ctx, "key"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	res, err := r.Increment(ctx, "key")
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if res.Limited {
		t.Fatal("limited after reset")
	}
}

func TestRedisBackendUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	r := NewRedis(client, "rl", Policy{Max: 1, Window: time.Minute})

	mr.Close()

	if _, err := r.Increment(context.Background(), "key"); err == nil {
		t.Fatal("expected backend error after server shutdown")
	}
}
