package authcore

import (
	"context"
	"time"
)

// AccountStatus is the lifecycle state of a principal. Only active
// principals may authenticate.
type AccountStatus uint8

const (
	// AccountActive permits authentication.
	AccountActive AccountStatus = iota
	// AccountInactive blocks authentication without implying sanction.
	AccountInactive
	// AccountSuspended blocks authentication as an administrative action.
	AccountSuspended
)

// Principal is the minimal identity view this subsystem needs. The
// record is owned by an external identity store; the engine only reads
// it and, on password reset, writes a new password hash back through
// the provider.
type Principal struct {
	ID           string
	Email        string
	Name         string
	Role         string
	TenantID     string
	LocationID   string
	Status       AccountStatus
	PasswordHash string
	// PINHash is empty for principals without kiosk login provisioned.
	PINHash string
}

// DeviceStatus is the trust state of a registered kiosk device.
type DeviceStatus uint8

const (
	// DeviceActive devices may serve kiosk logins.
	DeviceActive DeviceStatus = iota
	// DeviceSuspended devices are temporarily blocked.
	DeviceSuspended
	// DeviceRevoked devices are permanently blocked.
	DeviceRevoked
)

// TrustedDevice is a kiosk device registered out-of-band. The engine
// reads its status and updates LastUsedAt as best-effort telemetry.
type TrustedDevice struct {
	ID          string
	TenantID    string
	LocationID  string
	Name        string
	Fingerprint string
	Status      DeviceStatus
	LastUsedAt  time.Time
}

// UserProvider is the external identity store. Lookups return
// ErrUserNotFound when no principal matches.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByID(ctx context.Context, id string) (*Principal, error)
	// ListPINCandidates returns the active PIN-provisioned principals at
	// a location. The engine compares the presented PIN against every
	// candidate, so the provider should keep the set location-scoped.
	ListPINCandidates(ctx context.Context, locationID string) ([]*Principal, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// Notifier delivers reset tokens over the side channel. Send failures
// are logged and swallowed; they never fail the flow.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// LoginResult is returned by a successful password login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
	Principal *Principal
}

// RefreshResult is returned by a successful token refresh. The refresh
// token is always a newly rotated one; the presented token is revoked.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// PINLoginResult is returned by a successful kiosk PIN login. Kiosk
// sessions carry no refresh token.
type PINLoginResult struct {
	AccessToken string
	ExpiresIn   int64
	Principal   *Principal
}

// LogoutAllResult reports how many refresh sessions a logout-all
// revoked. Zero is a normal, successful outcome.
type LogoutAllResult struct {
	RevokedCount int
}

// ElevatedAccessResult reports the end of the re-verification window
// opened by a successful elevated-access check.
type ElevatedAccessResult struct {
	ValidUntil time.Time
}
