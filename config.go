package authcore

import (
	"errors"
	"time"
)

// Config groups all engine tuning. Zero values are filled by
// DefaultConfig; Validate runs at build time and treats a missing or
// weak signing secret as fatal.
type Config struct {
	JWT            JWTConfig
	Password       PasswordConfig
	Lockout        LockoutConfig
	ResetRequests  ResetRequestConfig
	LoginThrottle  LoginThrottleConfig
	PasswordReset  PasswordResetConfig
	ElevatedAccess ElevatedAccessConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
}

// JWTConfig holds token signing parameters. Secret must be at least 32
// bytes of key material, configured at process start.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	KioskTTL   time.Duration
	Issuer     string
	Leeway     time.Duration
}

// PasswordConfig holds argon2id cost parameters (Memory in KB) and the
// minimum accepted password length for resets.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// LockoutConfig tunes the PIN lockout tracker.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// ResetRequestConfig is the forgot-password request budget per email.
type ResetRequestConfig struct {
	MaxRequests int
	Window      time.Duration
}

// LoginThrottleConfig optionally budgets failed password logins per
// email. Disabled by default; the lockout tracker covers PIN logins.
type LoginThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// PasswordResetConfig tunes reset token lifetime.
type PasswordResetConfig struct {
	TokenTTL time.Duration
}

// ElevatedAccessConfig tunes the re-verification window for sensitive
// operations.
type ElevatedAccessConfig struct {
	Enabled bool
	TTL     time.Duration
}

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the standing defaults: 24h access, 7d refresh,
// 4h kiosk tokens; 3 failures / 15 min lockout; 3 reset requests per 15
// min; 1h reset tokens; 5 min elevated access.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			KioskTTL:   4 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   10,
		},
		Lockout: LockoutConfig{
			Threshold: 3,
			Duration:  15 * time.Minute,
		},
		ResetRequests: ResetRequestConfig{
			MaxRequests: 3,
			Window:      15 * time.Minute,
		},
		LoginThrottle: LoginThrottleConfig{
			Enabled:     false,
			MaxAttempts: 10,
			Window:      15 * time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: time.Hour,
		},
		ElevatedAccess: ElevatedAccessConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine must not start with.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.KioskTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Lockout.Threshold <= 0 || c.Lockout.Duration <= 0 {
		return errors.New("lockout threshold and duration must be positive")
	}
	if c.ResetRequests.MaxRequests <= 0 || c.ResetRequests.Window <= 0 {
		return errors.New("reset request budget must be positive")
	}
	if c.LoginThrottle.Enabled && (c.LoginThrottle.MaxAttempts <= 0 || c.LoginThrottle.Window <= 0) {
		return errors.New("login throttle budget must be positive")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("reset token TTL must be positive")
	}
	if c.ElevatedAccess.Enabled && c.ElevatedAccess.TTL <= 0 {
		return errors.New("elevated access TTL must be positive")
	}
	if c.Password.MinLength <= 0 {
		return errors.New("password minimum length must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.Secret != nil {
		out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	}
	return out
}
