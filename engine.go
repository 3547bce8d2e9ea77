package authcore

import (
	"context"
	"strings"
	"time"

	"github.com/relaypoint/authcore/internal/lockout"
	"github.com/relaypoint/authcore/internal/rate"
	"github.com/relaypoint/authcore/jwt"
	"github.com/relaypoint/authcore/password"
)

// Engine composes the token issuer, credential verifiers, limiters and
// stores into the four user-facing flows: login, refresh, PIN login and
// password reset. Engines are built once via Builder and are safe for
// concurrent use.
type Engine struct {
	config Config

	tokens  *jwt.Manager
	hasher  *password.Hasher
	users   UserProvider
	devices DeviceRegistry

	refreshSessions RefreshSessionStore
	resetTokens     ResetTokenStore
	lockouts        lockout.Tracker
	resetLimiter    rate.Limiter
	loginLimiter    rate.Limiter
	elevated        *elevatedAccessTracker
	notifier        Notifier

	audit   *auditDispatcher
	metrics *Metrics

	now func() time.Time
}

// Close drains the audit dispatcher and stops the background sweepers
// of any in-process limiters the engine owns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	for _, v := range []any{e.resetLimiter, e.loginLimiter, e.lockouts} {
		if stopper, ok := v.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// ValidateAccess validates an access token and returns its claims. The
// transport layer uses this to authenticate API calls.
func (e *Engine) ValidateAccess(token string) (*jwt.Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.Validate(token, jwt.TypeAccess)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// PurgeExpiredSessions garbage-collects refresh records that expired
// before now. Intended for a caller-scheduled maintenance task.
func (e *Engine) PurgeExpiredSessions(ctx context.Context) (int, error) {
	if e == nil || e.refreshSessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.refreshSessions.Purge(ctx, e.now())
}

func (e *Engine) metricInc(id MetricID) {
	if e.metrics != nil {
		e.metrics.Inc(id)
	}
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, deviceID string, failure error, meta map[string]string) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		DeviceID:  deviceID,
		Success:   success,
		Metadata:  meta,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	e.audit.Emit(ctx, event)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
