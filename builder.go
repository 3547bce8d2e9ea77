package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.etcd.io/bbolt"

	"github.com/relaypoint/authcore/internal/lockout"
	"github.com/relaypoint/authcore/internal/rate"
	"github.com/relaypoint/authcore/jwt"
	"github.com/relaypoint/authcore/password"
)

// Builder assembles an Engine. Limiters and lockout tracking use Redis
// when a client is provided and fall back to in-process implementations
// otherwise; stores use bbolt when a database is provided and fall back
// to memory. Explicitly injected stores win over both.
type Builder struct {
	config Config

	redis redis.UniversalClient
	bolt  *bbolt.DB

	userProvider UserProvider
	devices      DeviceRegistry
	refreshStore RefreshSessionStore
	resetStore   ResetTokenStore
	notifier     Notifier
	auditSink    AuditSink

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the JWT signing secret.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = append([]byte(nil), secret...)
	return b
}

// WithRedis backs the rate limiters and lockout tracker with Redis,
// for multi-instance deployments.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBolt backs the refresh, reset and device stores with bbolt.
func (b *Builder) WithBolt(db *bbolt.DB) *Builder {
	b.bolt = db
	return b
}

// WithUserProvider sets the external identity store. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithDeviceRegistry overrides the device registry implementation.
func (b *Builder) WithDeviceRegistry(reg DeviceRegistry) *Builder {
	b.devices = reg
	return b
}

// WithRefreshStore overrides the refresh session store implementation.
func (b *Builder) WithRefreshStore(s RefreshSessionStore) *Builder {
	b.refreshStore = s
	return b
}

// WithResetStore overrides the reset token store implementation.
func (b *Builder) WithResetStore(s ResetTokenStore) *Builder {
	b.resetStore = s
	return b
}

// WithNotifier sets the reset email sender. Without one, reset tokens
// are generated and stored but delivery is skipped (logged).
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// Build validates the configuration and assembles the engine. A missing
// or short signing secret fails here, at startup, never at runtime.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		KioskTTL:   cfg.JWT.KioskTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   cfg,
		tokens:   tokens,
		hasher:   hasher,
		users:    b.userProvider,
		devices:  b.devices,
		notifier: b.notifier,
		now:      time.Now,
	}

	resetPolicy := rate.Policy{Max: cfg.ResetRequests.MaxRequests, Window: cfg.ResetRequests.Window}
	lockoutCfg := lockout.Config{Threshold: cfg.Lockout.Threshold, Duration: cfg.Lockout.Duration}
	if b.redis != nil {
		e.resetLimiter = rate.NewRedis(b.redis, "prl", resetPolicy)
		e.lockouts = lockout.NewRedis(b.redis, "plk", lockoutCfg)
		if cfg.LoginThrottle.Enabled {
			e.loginLimiter = rate.NewRedis(b.redis, "lrl", rate.Policy{
				Max:    cfg.LoginThrottle.MaxAttempts,
				Window: cfg.LoginThrottle.Window,
			})
		}
	} else {
		e.resetLimiter = rate.NewMemory(resetPolicy)
		e.lockouts = lockout.NewMemory(lockoutCfg)
		if cfg.LoginThrottle.Enabled {
			e.loginLimiter = rate.NewMemory(rate.Policy{
				Max:    cfg.LoginThrottle.MaxAttempts,
				Window: cfg.LoginThrottle.Window,
			})
		}
	}

	e.refreshSessions = b.refreshStore
	e.resetTokens = b.resetStore
	if b.bolt != nil {
		if e.refreshSessions == nil {
			if e.refreshSessions, err = NewBoltRefreshStore(b.bolt); err != nil {
				return nil, err
			}
		}
		if e.resetTokens == nil {
			if e.resetTokens, err = NewBoltResetStore(b.bolt); err != nil {
				return nil, err
			}
		}
		if e.devices == nil {
			if e.devices, err = NewBoltDeviceRegistry(b.bolt); err != nil {
				return nil, err
			}
		}
	}
	if e.refreshSessions == nil {
		e.refreshSessions = NewMemoryRefreshStore()
	}
	if e.resetTokens == nil {
		e.resetTokens = NewMemoryResetStore()
	}
	if e.devices == nil {
		e.devices = NewMemoryDeviceRegistry()
	}

	if cfg.ElevatedAccess.Enabled {
		e.elevated = newElevatedAccessTracker()
	}
	if cfg.Audit.Enabled {
		e.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	}
	if cfg.Metrics.Enabled {
		e.metrics = newMetrics()
	}

	b.built = true
	return e, nil
}
