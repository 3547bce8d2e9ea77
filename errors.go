package authcore

import "errors"

var (
	// ErrEngineNotReady is returned when a flow is invoked on a nil or
	// incompletely built engine.
	ErrEngineNotReady = errors.New("engine not ready")

	// ErrInvalidCredentials merges every login failure mode the caller is
	// not allowed to distinguish: unknown user, wrong password or PIN,
	// inactive account, unknown device.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken merges every refresh failure mode: bad
	// signature, wrong type, expired, revoked, unknown record, inactive
	// account, lost rotation race.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrLocked signals an active lockout. Deliberately distinct from
	// ErrInvalidCredentials: lockout state is not itself sensitive.
	ErrLocked = errors.New("too many failed attempts, temporarily locked")

	// ErrDeviceNotTrusted is returned for a registered device whose trust
	// has been suspended or revoked. Device trust is managed out-of-band,
	// so disclosing it reveals nothing about credentials.
	ErrDeviceNotTrusted = errors.New("device not trusted")

	// ErrTokenInvalid is returned for a structurally invalid or
	// wrong-typed token presented to logout.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenNotFound is returned when a logout target has no stored
	// record.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenNotOwned is returned when a caller tries to revoke a
	// refresh token belonging to a different user.
	ErrTokenNotOwned = errors.New("token not owned by caller")

	// ErrRateLimited is returned when a request budget is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidPassword is returned by elevated-access verification for
	// any credential failure, including unknown or inactive users.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrPasswordPolicy is returned when a new password fails the
	// minimum-length policy.
	ErrPasswordPolicy = errors.New("password policy violation")

	// ErrServiceUnavailable is returned when an optional dependency the
	// operation requires is not configured.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrSessionCreationFailed indicates the refresh session store
	// rejected a new record.
	ErrSessionCreationFailed = errors.New("session creation failed")

	// ErrSessionInvalidationFailed indicates the refresh session store
	// rejected a revocation.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")

	// ErrUserNotFound is the sentinel a UserProvider returns when no
	// principal matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDeviceNotFound is the sentinel a DeviceRegistry returns when no
	// device matches the lookup.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrResetTokenNotFound is the sentinel the reset token store returns
	// for missing, expired or already-used tokens; the three cases are
	// indistinguishable by design.
	ErrResetTokenNotFound = errors.New("reset token not found")
)
