package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event names emitted by the engine.
const (
	EventLoginSuccess          = "login.success"
	EventLoginFailure          = "login.failure"
	EventLoginRateLimited      = "login.rate_limited"
	EventRefreshSuccess        = "refresh.success"
	EventRefreshFailure        = "refresh.failure"
	EventLogoutSuccess         = "logout.success"
	EventLogoutDenied          = "logout.denied"
	EventLogoutAll             = "logout.all"
	EventPINLoginSuccess       = "pin_login.success"
	EventPINLoginFailure       = "pin_login.failure"
	EventPINLoginLocked        = "pin_login.locked"
	EventPINDeviceRejected     = "pin_login.device_rejected"
	EventResetRequested        = "password_reset.requested"
	EventResetRateLimited      = "password_reset.rate_limited"
	EventResetCompleted        = "password_reset.completed"
	EventResetRejected         = "password_reset.rejected"
	EventElevatedVerified      = "elevated_access.verified"
	EventElevatedDenied        = "elevated_access.denied"
)

// AuditEvent is one security-relevant occurrence. Events are emitted
// best-effort and never influence flow outcomes.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	TenantID  string            `json:"tenant_id,omitempty"`
	DeviceID  string            `json:"device_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards all events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel for in-process
// consumers.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the sink's channel.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes events as JSON lines to a writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
