package authcore

import (
	"context"
	"crypto/rand"
	"log"
	"math/big"
	"time"

	"github.com/relaypoint/authcore/internal"
)

// ForgotPasswordMessage is the single response body for every
// forgot-password request. It never varies with account existence.
const ForgotPasswordMessage = "If an account exists for that address, a password reset link has been sent."

const (
	dummyDelayMin  = 15 * time.Millisecond
	dummyDelaySpan = 30 * time.Millisecond
)

// ForgotPassword issues a one-time reset token for the account behind
// the email, if one exists, and hands the plain token to the notifier.
// The response is byte-identical whether or not the account exists; the
// missing-account branch performs throwaway token generation and a
// randomized delay so the two branches have overlapping timing.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (string, error) {
	if e == nil || e.users == nil || e.resetTokens == nil {
		return "", ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if e.resetLimiter != nil {
		res, err := e.resetLimiter.Increment(ctx, email)
		switch {
		case err != nil:
			// Fail open, but keep the evidence.
			log.Print("authcore: reset request limiter failed, failing open")
		case res.Limited:
			e.metricInc(MetricResetRateLimited)
			e.emitAudit(ctx, EventResetRateLimited, false, "", "", ErrRateLimited, map[string]string{"email": email})
			return "", ErrRateLimited
		}
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil || user == nil {
		// Equivalent-cost dummy work for the missing account.
		if _, _, derr := internal.NewResetToken(); derr != nil {
			log.Print("authcore: dummy reset token generation failed")
		}
		sleepJitter(ctx)
		e.metricInc(MetricResetRequested)
		e.emitAudit(ctx, EventResetRequested, true, "", "", nil, map[string]string{"known_account": "false"})
		return ForgotPasswordMessage, nil
	}

	plain, hash, err := internal.NewResetToken()
	if err != nil {
		return "", err
	}
	rec := &PasswordResetTokenRecord{
		ID:        internal.NewID(),
		TokenHash: hash,
		UserID:    user.ID,
		ExpiresAt: e.now().Add(e.config.PasswordReset.TokenTTL),
	}
	if err := e.resetTokens.Save(ctx, rec); err != nil {
		return "", err
	}

	// Delivery is fire-and-forget: a failed send is logged, never
	// surfaced, and never distinguishable in the response.
	if e.notifier != nil {
		go func(email, name, token string) {
			if err := e.notifier.SendPasswordReset(context.Background(), email, name, token); err != nil {
				log.Print("authcore: password reset email send failed")
			}
		}(user.Email, user.Name, plain)
	} else {
		log.Print("authcore: no notifier configured, reset token not delivered")
	}

	e.metricInc(MetricResetRequested)
	e.emitAudit(ctx, EventResetRequested, true, user.ID, "", nil, map[string]string{"known_account": "true"})
	return ForgotPasswordMessage, nil
}

// ResetPassword consumes a one-time reset token and installs the new
// password. On success every other outstanding reset token for the user
// is invalidated and every refresh session is revoked: a password
// change forces re-authentication everywhere.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil || e.users == nil || e.resetTokens == nil {
		return ErrEngineNotReady
	}
	if len(newPassword) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}

	rec, err := e.resetTokens.Consume(ctx, internal.HashToken(token))
	if err != nil || rec == nil {
		e.emitAudit(ctx, EventResetRejected, false, "", "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	user, err := e.users.GetByID(ctx, rec.UserID)
	if err != nil || user == nil {
		e.emitAudit(ctx, EventResetRejected, false, rec.UserID, "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return err
	}

	// Best-effort cleanup after the point of no return: the consumed
	// token is already burned.
	if _, err := e.resetTokens.InvalidateAllForUser(ctx, user.ID); err != nil {
		log.Print("authcore: stale reset token invalidation failed after password change")
	}
	if n, err := e.refreshSessions.RevokeAll(ctx, user.ID); err != nil {
		log.Print("authcore: session invalidation failed after password change")
	} else if n > 0 {
		e.metrics.Add(MetricSessionRevoked, uint64(n))
	}
	if e.elevated != nil {
		e.elevated.clear(user.ID)
	}
	if e.loginLimiter != nil {
		if err := e.loginLimiter.Reset(ctx, user.Email); err != nil {
			log.Print("authcore: login throttle reset failed after password change")
		}
	}

	e.metricInc(MetricResetCompleted)
	e.emitAudit(ctx, EventResetCompleted, true, user.ID, "", nil, nil)
	return nil
}

// sleepJitter pauses for a randomized interval in the same range as the
// store-and-dispatch cost of the real reset branch.
func sleepJitter(ctx context.Context) {
	span := big.NewInt(int64(dummyDelaySpan))
	n, err := rand.Int(rand.Reader, span)
	delay := dummyDelayMin
	if err == nil {
		delay += time.Duration(n.Int64())
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
