package authcore

import (
	"context"
	"log"

	"github.com/relaypoint/authcore/internal"
	"github.com/relaypoint/authcore/jwt"
)

// Login verifies an email/password pair and, on success, issues an
// access token and a stored, rotatable refresh token. Every failure
// mode the caller may not distinguish (unknown user, wrong password,
// inactive account) converges to ErrInvalidCredentials, and the unknown
// user branch burns a dummy hash comparison so the two are not
// separable by timing.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if e.loginLimiter != nil {
		res, err := e.loginLimiter.Check(ctx, email)
		switch {
		case err != nil:
			// Fail open: login availability beats throttling.
			log.Print("authcore: login throttle check failed, failing open")
		case res.Limited:
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, EventLoginRateLimited, false, "", "", ErrRateLimited, map[string]string{"email": email})
			return nil, ErrRateLimited
		}
	}

	if pass == "" {
		return nil, e.failLogin(ctx, email, "", "empty_password")
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		e.hasher.VerifyDummy(pass)
		return nil, e.failLogin(ctx, email, "", "user_not_found")
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, email, user.ID, "password_mismatch")
	}
	if user.Status != AccountActive {
		return nil, e.failLogin(ctx, email, user.ID, "account_not_active")
	}

	accessToken, _, err := e.tokens.Issue(user.ID, jwt.TypeAccess, user.Email, user.Role, user.TenantID)
	if err != nil {
		return nil, ErrSessionCreationFailed
	}
	refreshToken, refreshExp, err := e.tokens.Issue(user.ID, jwt.TypeRefresh, user.Email, user.Role, user.TenantID)
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	rec := &RefreshTokenRecord{
		ID:        internal.NewID(),
		TokenHash: internal.HashToken(refreshToken),
		UserID:    user.ID,
		ExpiresAt: refreshExp,
		CreatedAt: e.now(),
	}
	if err := e.refreshSessions.Store(ctx, rec); err != nil {
		return nil, ErrSessionCreationFailed
	}

	if e.loginLimiter != nil {
		if err := e.loginLimiter.Reset(ctx, email); err != nil {
			log.Print("authcore: login throttle reset failed")
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, EventLoginSuccess, true, user.ID, "", nil, nil)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(e.tokens.TTL(jwt.TypeAccess).Seconds()),
		Principal:    user,
	}, nil
}

// failLogin counts a failed attempt against the throttle and converges
// the outcome to ErrInvalidCredentials.
func (e *Engine) failLogin(ctx context.Context, email, userID, reason string) error {
	if e.loginLimiter != nil {
		if _, err := e.loginLimiter.Increment(ctx, email); err != nil {
			log.Print("authcore: login throttle increment failed")
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, EventLoginFailure, false, userID, "", ErrInvalidCredentials, map[string]string{
		"email":  email,
		"reason": reason,
	})
	return ErrInvalidCredentials
}
