package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func deviceRegistries(t *testing.T) map[string]DeviceRegistry {
	t.Helper()
	bolt, err := NewBoltDeviceRegistry(openTestBolt(t))
	if err != nil {
		t.Fatalf("NewBoltDeviceRegistry: %v", err)
	}
	return map[string]DeviceRegistry{
		"memory": NewMemoryDeviceRegistry(),
		"bolt":   bolt,
	}
}

func TestDeviceRegistryRoundTrip(t *testing.T) {
	for name, reg := range deviceRegistries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dev := &TrustedDevice{
				ID:         "dev-1",
				TenantID:   "tenant-1",
				LocationID: "loc-1",
				Name:       "front desk",
				Status:     DeviceActive,
			}
			if err := reg.Register(ctx, dev); err != nil {
				t.Fatalf("Register: %v", err)
			}

			got, err := reg.FindByDeviceID(ctx, "dev-1")
			if err != nil {
				t.Fatalf("FindByDeviceID: %v", err)
			}
			if got.LocationID != "loc-1" || got.Status != DeviceActive {
				t.Fatalf("got %+v", got)
			}

			if _, err := reg.FindByDeviceID(ctx, "dev-2"); !errors.Is(err, ErrDeviceNotFound) {
				t.Fatalf("unknown device: err = %v", err)
			}
		})
	}
}

func TestDeviceRegistryIsTrusted(t *testing.T) {
	for name, reg := range deviceRegistries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg.Register(ctx, &TrustedDevice{ID: "active", Status: DeviceActive})
			reg.Register(ctx, &TrustedDevice{ID: "suspended", Status: DeviceSuspended})
			reg.Register(ctx, &TrustedDevice{ID: "revoked", Status: DeviceRevoked})

			cases := map[string]bool{
				"active":    true,
				"suspended": false,
				"revoked":   false,
				"unknown":   false,
			}
			for id, want := range cases {
				ok, err := reg.IsTrusted(ctx, id)
				if err != nil {
					t.Fatalf("IsTrusted(%s): %v", id, err)
				}
				if ok != want {
					t.Errorf("IsTrusted(%s) = %v, want %v", id, ok, want)
				}
			}
		})
	}
}

func TestDeviceRegistryUpdateLastUsed(t *testing.T) {
	for name, reg := range deviceRegistries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg.Register(ctx, &TrustedDevice{ID: "dev-1", Status: DeviceActive})

			stamp := time.Now().Round(time.Second)
			if err := reg.UpdateLastUsed(ctx, "dev-1", stamp); err != nil {
				t.Fatalf("UpdateLastUsed: %v", err)
			}

			got, err := reg.FindByDeviceID(ctx, "dev-1")
			if err != nil {
				t.Fatalf("FindByDeviceID: %v", err)
			}
			if !got.LastUsedAt.Equal(stamp) {
				t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, stamp)
			}

			if err := reg.UpdateLastUsed(ctx, "unknown", stamp); !errors.Is(err, ErrDeviceNotFound) {
				t.Errorf("unknown device: err = %v", err)
			}
		})
	}
}
