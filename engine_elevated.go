package authcore

import (
	"context"
	"time"
)

// VerifyElevatedAccess re-verifies a user's password and opens a short
// window (ElevatedAccess.TTL, 5 minutes by default) during which the
// caller may perform sensitive operations without another prompt. Any
// credential failure, including an unknown or inactive user, converges
// to ErrInvalidPassword.
func (e *Engine) VerifyElevatedAccess(ctx context.Context, userID, pass string) (*ElevatedAccessResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if e.elevated == nil {
		return nil, ErrServiceUnavailable
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		e.hasher.VerifyDummy(pass)
		return nil, e.failElevated(ctx, userID)
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.failElevated(ctx, userID)
	}
	if user.Status != AccountActive {
		return nil, e.failElevated(ctx, userID)
	}

	e.elevated.recordVerification(userID)
	until, _ := e.elevated.validUntil(userID, e.config.ElevatedAccess.TTL)

	e.metricInc(MetricElevatedVerified)
	e.emitAudit(ctx, EventElevatedVerified, true, userID, "", nil, nil)
	return &ElevatedAccessResult{ValidUntil: until}, nil
}

func (e *Engine) failElevated(ctx context.Context, userID string) error {
	e.metricInc(MetricElevatedDenied)
	e.emitAudit(ctx, EventElevatedDenied, false, userID, "", ErrInvalidPassword, nil)
	return ErrInvalidPassword
}

// HasElevatedAccess reports whether the user's re-verification window
// is still open. Expiry is evaluated lazily at call time.
func (e *Engine) HasElevatedAccess(userID string) bool {
	if e == nil || e.elevated == nil {
		return false
	}
	return e.elevated.isValid(userID, e.config.ElevatedAccess.TTL)
}

// ElevatedAccessValidUntil returns the end of the user's window, or
// false when no window is open.
func (e *Engine) ElevatedAccessValidUntil(userID string) (time.Time, bool) {
	if e == nil || e.elevated == nil {
		return time.Time{}, false
	}
	return e.elevated.validUntil(userID, e.config.ElevatedAccess.TTL)
}

// ClearElevatedAccess closes the user's window immediately.
func (e *Engine) ClearElevatedAccess(userID string) {
	if e == nil || e.elevated == nil {
		return
	}
	e.elevated.clear(userID)
}
