package authcore

import (
	"context"
	"log"

	"github.com/relaypoint/authcore/jwt"
	"github.com/relaypoint/authcore/password"
)

// PINLogin authenticates a kiosk PIN presented at a registered device
// and issues a kiosk token. Kiosk sessions carry no refresh token.
//
// Failure modes converge to ErrInvalidCredentials except an active
// lockout (ErrLocked) and a registered-but-untrusted device
// (ErrDeviceNotTrusted); an unknown device ID is indistinguishable from
// a wrong PIN. The candidate scan visits every PIN holder at the
// device's location and never short-circuits on a match, so response
// time does not leak candidate count or match position.
func (e *Engine) PINLogin(ctx context.Context, pin, deviceID string) (*PINLoginResult, error) {
	if e == nil || e.users == nil || e.devices == nil {
		return nil, ErrEngineNotReady
	}

	// Format is checked before any hashing attempt.
	if !password.ValidPINFormat(pin) {
		return nil, e.failPIN(ctx, "", deviceID, "pin_format")
	}

	dev, err := e.devices.FindByDeviceID(ctx, deviceID)
	if err != nil || dev == nil {
		e.hasher.VerifyDummy(pin)
		return nil, e.failPIN(ctx, "", deviceID, "device_unknown")
	}
	if dev.Status != DeviceActive {
		e.hasher.VerifyDummy(pin)
		e.metricInc(MetricPINLoginFailure)
		e.emitAudit(ctx, EventPINDeviceRejected, false, "", deviceID, ErrDeviceNotTrusted, nil)
		return nil, ErrDeviceNotTrusted
	}

	// Device-level lockout: keyed (deviceID, deviceID), counting bad
	// PINs that matched nobody. Independent of the per-user counter.
	devStatus, err := e.lockouts.Status(ctx, deviceID, deviceID)
	if err != nil {
		log.Print("authcore: device lockout check failed, failing open")
	} else if devStatus.Locked {
		e.metricInc(MetricPINLockout)
		e.emitAudit(ctx, EventPINLoginLocked, false, "", deviceID, ErrLocked, nil)
		return nil, ErrLocked
	}

	candidates, err := e.users.ListPINCandidates(ctx, dev.LocationID)
	if err != nil {
		log.Print("authcore: pin candidate lookup failed")
		candidates = nil
	}

	// Constant-time scan: compare against every candidate, keep the
	// first match, never break early.
	matchIdx := -1
	for i, c := range candidates {
		if c == nil || c.PINHash == "" {
			continue
		}
		ok, verr := e.hasher.Verify(pin, c.PINHash)
		if verr == nil && ok && matchIdx < 0 {
			matchIdx = i
		}
	}
	if len(candidates) == 0 {
		e.hasher.VerifyDummy(pin)
	}

	if matchIdx < 0 {
		st, lerr := e.lockouts.RecordFailure(ctx, deviceID, deviceID)
		if lerr != nil {
			log.Print("authcore: device lockout increment failed")
		} else if st.Locked {
			e.metricInc(MetricPINLockout)
			e.emitAudit(ctx, EventPINLoginLocked, false, "", deviceID, ErrLocked, nil)
			return nil, ErrLocked
		}
		return nil, e.failPIN(ctx, "", deviceID, "no_match")
	}

	user := candidates[matchIdx]

	userStatus, err := e.lockouts.Status(ctx, user.ID, deviceID)
	if err != nil {
		log.Print("authcore: user lockout check failed, failing open")
	} else if userStatus.Locked {
		e.metricInc(MetricPINLockout)
		e.emitAudit(ctx, EventPINLoginLocked, false, user.ID, deviceID, ErrLocked, nil)
		return nil, ErrLocked
	}

	if user.Status != AccountActive {
		st, lerr := e.lockouts.RecordFailure(ctx, user.ID, deviceID)
		if lerr != nil {
			log.Print("authcore: user lockout increment failed")
		} else if st.Locked {
			e.metricInc(MetricPINLockout)
			e.emitAudit(ctx, EventPINLoginLocked, false, user.ID, deviceID, ErrLocked, nil)
			return nil, ErrLocked
		}
		return nil, e.failPIN(ctx, user.ID, deviceID, "account_not_active")
	}

	// Success: both counters reset, device telemetry is best-effort.
	if err := e.lockouts.Reset(ctx, user.ID, deviceID); err != nil {
		log.Print("authcore: user lockout reset failed")
	}
	if err := e.lockouts.Reset(ctx, deviceID, deviceID); err != nil {
		log.Print("authcore: device lockout reset failed")
	}
	if err := e.devices.UpdateLastUsed(ctx, deviceID, e.now()); err != nil {
		log.Print("authcore: device last-used update failed")
	}

	kioskToken, _, err := e.tokens.Issue(user.ID, jwt.TypeKiosk, user.Email, user.Role, user.TenantID)
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	e.metricInc(MetricPINLoginSuccess)
	e.emitAudit(ctx, EventPINLoginSuccess, true, user.ID, deviceID, nil, nil)

	return &PINLoginResult{
		AccessToken: kioskToken,
		ExpiresIn:   int64(e.tokens.TTL(jwt.TypeKiosk).Seconds()),
		Principal:   user,
	}, nil
}

func (e *Engine) failPIN(ctx context.Context, userID, deviceID, reason string) error {
	e.metricInc(MetricPINLoginFailure)
	e.emitAudit(ctx, EventPINLoginFailure, false, userID, deviceID, ErrInvalidCredentials, map[string]string{
		"reason": reason,
	})
	return ErrInvalidCredentials
}
