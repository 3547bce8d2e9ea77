package authcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/authcore/jwt"
)

func TestLoginSuccess(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	res, err := engine.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.EqualValues(t, 86400, res.ExpiresIn)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, res.AccessToken, res.RefreshToken)
	require.NotNil(t, res.Principal)
	assert.Equal(t, "user-1", res.Principal.ID)

	claims, err := engine.ValidateAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "tenant-1", claims.TenantID)

	// The refresh token must not pass as an access token.
	_, err = engine.ValidateAccess(res.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLoginNormalizesEmail(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	res, err := engine.Login(context.Background(), "  ALICE@Example.COM ", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.Principal.ID)
}

func TestLoginFailuresConverge(t *testing.T) {
	engine, users := newTestEngine(t, nil)
	users.add(&Principal{
		ID:           "user-2",
		Email:        "bob@example.com",
		Status:       AccountSuspended,
		PasswordHash: hashSecret(t, "bob password 123"),
	})
	ctx := context.Background()

	cases := map[string]struct {
		email string
		pass  string
	}{
		"unknown user":      {"nobody@example.com", "whatever pass"},
		"wrong password":    {"alice@example.com", "wrong password"},
		"empty password":    {"alice@example.com", ""},
		"suspended account": {"bob@example.com", "bob password 123"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := engine.Login(ctx, tc.email, tc.pass)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLoginThrottle(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.LoginThrottle.Enabled = true
		cfg.LoginThrottle.MaxAttempts = 2
		cfg.LoginThrottle.Window = time.Minute
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := engine.Login(ctx, "alice@example.com", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := engine.Login(ctx, "alice@example.com", "correct horse battery")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.LoginThrottle.Enabled = true
		cfg.LoginThrottle.MaxAttempts = 3
		cfg.LoginThrottle.Window = time.Minute
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := engine.Login(ctx, "alice@example.com", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := engine.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	// The budget is fresh again after the successful login.
	for i := 0; i < 2; i++ {
		_, err := engine.Login(ctx, "alice@example.com", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = engine.Login(ctx, "alice@example.com", "correct horse battery")
	assert.NoError(t, err)
}

func TestLoginMetrics(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := engine.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	_, err = engine.Login(ctx, "alice@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	snap := engine.MetricsSnapshot()
	assert.EqualValues(t, 1, snap.Counters[MetricLoginSuccess])
	assert.EqualValues(t, 1, snap.Counters[MetricLoginFailure])
}

func TestLoginAuditEvents(t *testing.T) {
	sink := NewChannelSink(16)

	cfg := fastTestConfig()
	users := newMockUserProvider()
	users.add(&Principal{
		ID:           "user-1",
		Email:        "alice@example.com",
		Status:       AccountActive,
		PasswordHash: hashSecret(t, "correct horse battery"),
	})
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(users).
		WithAuditSink(sink).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	_, err = engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	select {
	case ev := <-sink.Events():
		assert.Equal(t, EventLoginSuccess, ev.EventType)
		assert.Equal(t, "user-1", ev.UserID)
		assert.True(t, ev.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event received")
	}
}

func TestRefreshTokenTypeMatchesClaim(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	claims, err := engine.tokens.Decode(res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, string(jwt.TypeRefresh), claims.TokenType)
}
