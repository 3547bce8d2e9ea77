package authcore

import (
	"context"
	"errors"

	"github.com/relaypoint/authcore/internal"
	"github.com/relaypoint/authcore/jwt"
)

// Refresh exchanges a valid refresh token for a new access token and a
// rotated refresh token. The presented token is revoked atomically with
// the creation of its successor; when two refreshes race on the same
// token, exactly one wins and the other fails. Every failure converges
// to ErrInvalidRefreshToken so the caller cannot tell which check broke.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Validate(refreshToken, jwt.TypeRefresh)
	if err != nil {
		return nil, e.failRefresh(ctx, "", "token_invalid")
	}

	rec, err := e.refreshSessions.FindValid(ctx, internal.HashToken(refreshToken))
	if err != nil || rec == nil {
		return nil, e.failRefresh(ctx, claims.Subject, "record_not_valid")
	}
	if rec.UserID != claims.Subject {
		return nil, e.failRefresh(ctx, claims.Subject, "subject_mismatch")
	}

	user, err := e.users.GetByID(ctx, rec.UserID)
	if err != nil || user == nil {
		return nil, e.failRefresh(ctx, rec.UserID, "user_not_found")
	}
	if user.Status != AccountActive {
		return nil, e.failRefresh(ctx, rec.UserID, "account_not_active")
	}

	newRefresh, newExp, err := e.tokens.Issue(user.ID, jwt.TypeRefresh, user.Email, user.Role, user.TenantID)
	if err != nil {
		return nil, e.failRefresh(ctx, rec.UserID, "issue_failed")
	}
	newRec := &RefreshTokenRecord{
		ID:        internal.NewID(),
		TokenHash: internal.HashToken(newRefresh),
		UserID:    user.ID,
		ExpiresAt: newExp,
		CreatedAt: e.now(),
	}
	if err := e.refreshSessions.Rotate(ctx, rec.ID, newRec); err != nil {
		// Lost the rotation race or the store rolled the unit back.
		return nil, e.failRefresh(ctx, rec.UserID, "rotation_failed")
	}

	accessToken, _, err := e.tokens.Issue(user.ID, jwt.TypeAccess, user.Email, user.Role, user.TenantID)
	if err != nil {
		return nil, e.failRefresh(ctx, rec.UserID, "issue_failed")
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, EventRefreshSuccess, true, user.ID, "", nil, nil)

	return &RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(e.tokens.TTL(jwt.TypeAccess).Seconds()),
	}, nil
}

func (e *Engine) failRefresh(ctx context.Context, userID, reason string) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, EventRefreshFailure, false, userID, "", ErrInvalidRefreshToken, map[string]string{"reason": reason})
	return ErrInvalidRefreshToken
}

// Logout revokes the refresh session behind the presented token. The
// record must belong to callerID: a leaked or guessed token of another
// user yields ErrTokenNotOwned, not a revocation.
func (e *Engine) Logout(ctx context.Context, refreshToken, callerID string) error {
	if e == nil || e.refreshSessions == nil {
		return ErrEngineNotReady
	}

	if _, err := e.tokens.Validate(refreshToken, jwt.TypeRefresh); err != nil {
		return ErrTokenInvalid
	}

	rec, err := e.refreshSessions.Find(ctx, internal.HashToken(refreshToken))
	if err != nil || rec == nil {
		return ErrTokenNotFound
	}
	if rec.UserID != callerID {
		e.emitAudit(ctx, EventLogoutDenied, false, callerID, "", ErrTokenNotOwned, map[string]string{
			"record_id": rec.ID,
		})
		return ErrTokenNotOwned
	}

	if err := e.refreshSessions.Revoke(ctx, rec.ID); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return ErrSessionInvalidationFailed
	}

	if e.elevated != nil {
		e.elevated.clear(callerID)
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, EventLogoutSuccess, true, callerID, "", nil, nil)
	return nil
}

// LogoutAll revokes every active refresh session for the user and
// reports the count. Zero active sessions is a normal success.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (*LogoutAllResult, error) {
	if e == nil || e.refreshSessions == nil {
		return nil, ErrEngineNotReady
	}

	count, err := e.refreshSessions.RevokeAll(ctx, userID)
	if err != nil {
		return nil, ErrSessionInvalidationFailed
	}

	if e.elevated != nil {
		e.elevated.clear(userID)
	}

	e.metricInc(MetricLogoutAll)
	if count > 0 {
		e.metrics.Add(MetricSessionRevoked, uint64(count))
	}
	e.emitAudit(ctx, EventLogoutAll, true, userID, "", nil, nil)

	return &LogoutAllResult{RevokedCount: count}, nil
}
