package authcore

import (
	"context"
	"sync"
	"time"
)

// DeviceRegistry tracks kiosk device trust. Devices are registered
// out-of-band; the engine only reads status and updates LastUsedAt.
type DeviceRegistry interface {
	// FindByDeviceID returns the device or ErrDeviceNotFound.
	FindByDeviceID(ctx context.Context, id string) (*TrustedDevice, error)
	// IsTrusted reports whether the device exists and is active.
	IsTrusted(ctx context.Context, id string) (bool, error)
	// Register adds or replaces a device record.
	Register(ctx context.Context, d *TrustedDevice) error
	// UpdateLastUsed stamps the device's last-used time. Failures are
	// telemetry-only and must never fail a login.
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
}

// memoryDeviceRegistry is the in-process DeviceRegistry.
type memoryDeviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]*TrustedDevice
}

// NewMemoryDeviceRegistry returns an in-process device registry.
func NewMemoryDeviceRegistry() DeviceRegistry {
	return &memoryDeviceRegistry{devices: make(map[string]*TrustedDevice)}
}

func (r *memoryDeviceRegistry) FindByDeviceID(_ context.Context, id string) (*TrustedDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memoryDeviceRegistry) IsTrusted(ctx context.Context, id string) (bool, error) {
	d, err := r.FindByDeviceID(ctx, id)
	if err != nil {
		return false, nil
	}
	return d.Status == DeviceActive, nil
}

func (r *memoryDeviceRegistry) Register(_ context.Context, d *TrustedDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *d
	r.devices[cp.ID] = &cp
	return nil
}

func (r *memoryDeviceRegistry) UpdateLastUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.LastUsedAt = at
	return nil
}
