package authcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/authcore/jwt"
)

func login(t *testing.T, engine *Engine) *LoginResult {
	t.Helper()
	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	return res
}

func TestRefreshRotatesToken(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	first := login(t, engine)

	res, err := engine.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, first.RefreshToken, res.RefreshToken)
	assert.EqualValues(t, 86400, res.ExpiresIn)

	claims, err := engine.ValidateAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	// The presented token is revoked by the rotation.
	_, err = engine.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The rotated token works.
	_, err = engine.Refresh(ctx, res.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshChain(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	token := login(t, engine).RefreshToken
	for i := 0; i < 5; i++ {
		res, err := engine.Refresh(ctx, token)
		require.NoError(t, err, "rotation %d", i)
		token = res.RefreshToken
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	for _, token := range []string{"", "not.a.jwt", "a.b.c"} {
		_, err := engine.Refresh(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	res := login(t, engine)

	_, err := engine.Refresh(context.Background(), res.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshRejectsUnstoredToken(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	// A structurally valid refresh token with no stored record, as after
	// a revocation sweep.
	token, _, err := engine.tokens.Issue("user-1", jwt.TypeRefresh, "", "", "")
	require.NoError(t, err)

	_, err = engine.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshRejectsInactiveUser(t *testing.T) {
	engine, users := newTestEngine(t, nil)
	res := login(t, engine)

	users.add(&Principal{
		ID:           "user-1",
		Email:        "alice@example.com",
		Status:       AccountSuspended,
		PasswordHash: hashSecret(t, "correct horse battery"),
	})

	_, err := engine.Refresh(context.Background(), res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogoutRevokesSession(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	res := login(t, engine)

	require.NoError(t, engine.Logout(ctx, res.RefreshToken, "user-1"))

	_, err := engine.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogoutChecksOwnership(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	res := login(t, engine)

	err := engine.Logout(ctx, res.RefreshToken, "user-2")
	assert.ErrorIs(t, err, ErrTokenNotOwned)

	// The session survives the denied attempt.
	_, err = engine.Refresh(ctx, res.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutRejectsBadTokens(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	err := engine.Logout(ctx, "garbage", "user-1")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	token, _, err := engine.tokens.Issue("user-1", jwt.TypeRefresh, "", "", "")
	require.NoError(t, err)
	err = engine.Logout(ctx, token, "user-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestLogoutAll(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 3; i++ {
		tokens = append(tokens, login(t, engine).RefreshToken)
	}

	res, err := engine.LogoutAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.RevokedCount)

	for _, token := range tokens {
		_, err := engine.Refresh(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}

	// Logging out with no sessions is a normal success.
	res, err = engine.LogoutAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.RevokedCount)
}

func TestPurgeExpiredSessions(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()
	login(t, engine)

	// Live sessions survive the sweep.
	count, err := engine.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
