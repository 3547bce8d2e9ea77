package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/authcore/password"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// mockUserProvider is an in-memory UserProvider for flow tests.
type mockUserProvider struct {
	mu    sync.Mutex
	users map[string]*Principal
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{users: make(map[string]*Principal)}
}

func (p *mockUserProvider) add(u *Principal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *u
	p.users[cp.ID] = &cp
}

func (p *mockUserProvider) GetByEmail(_ context.Context, email string) (*Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range p.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (p *mockUserProvider) GetByID(_ context.Context, id string) (*Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (p *mockUserProvider) ListPINCandidates(_ context.Context, locationID string) ([]*Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Principal
	for _, u := range p.users {
		if u.LocationID == locationID && u.PINHash != "" {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (p *mockUserProvider) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

// mockNotifier captures reset token deliveries.
type mockNotifier struct {
	mu     sync.Mutex
	tokens []string
	emails []string
}

func (n *mockNotifier) SendPasswordReset(_ context.Context, email, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	n.tokens = append(n.tokens, token)
	return nil
}

func (n *mockNotifier) lastToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tokens) == 0 {
		return ""
	}
	return n.tokens[len(n.tokens)-1]
}

// waitForToken polls until the async delivery goroutine has run.
func (n *mockNotifier) waitForToken(t *testing.T) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tok := n.lastToken(); tok != "" {
			return tok
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("reset token was never delivered")
	return ""
}

func fastTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func hashSecret(t *testing.T, secret string) string {
	t.Helper()
	h, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)
	encoded, err := h.Hash(secret)
	require.NoError(t, err)
	return encoded
}

// newTestEngine builds an engine over in-memory backends with fast
// hashing parameters and one seeded active user.
func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *mockUserProvider) {
	t.Helper()

	cfg := fastTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	users := newMockUserProvider()
	users.add(&Principal{
		ID:           "user-1",
		Email:        "alice@example.com",
		Name:         "Alice",
		Role:         "manager",
		TenantID:     "tenant-1",
		LocationID:   "loc-1",
		Status:       AccountActive,
		PasswordHash: hashSecret(t, "correct horse battery"),
	})

	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(users).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return engine, users
}
