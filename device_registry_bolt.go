package authcore

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var deviceBucket = []byte("trusted_devices")

// boltDeviceRegistry is the durable DeviceRegistry.
type boltDeviceRegistry struct {
	db *bbolt.DB
}

// NewBoltDeviceRegistry returns a device registry persisted in the given
// bbolt database.
func NewBoltDeviceRegistry(db *bbolt.DB) (DeviceRegistry, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(deviceBucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &boltDeviceRegistry{db: db}, nil
}

func (r *boltDeviceRegistry) FindByDeviceID(_ context.Context, id string) (*TrustedDevice, error) {
	var d *TrustedDevice
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(deviceBucket).Get([]byte(id))
		if data == nil {
			return ErrDeviceNotFound
		}
		d = &TrustedDevice{}
		return json.Unmarshal(data, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *boltDeviceRegistry) IsTrusted(ctx context.Context, id string) (bool, error) {
	d, err := r.FindByDeviceID(ctx, id)
	if err != nil {
		return false, nil
	}
	return d.Status == DeviceActive, nil
}

func (r *boltDeviceRegistry) Register(_ context.Context, d *TrustedDevice) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		return tx.Bucket(deviceBucket).Put([]byte(d.ID), data)
	})
}

func (r *boltDeviceRegistry) UpdateLastUsed(_ context.Context, id string, at time.Time) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(deviceBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrDeviceNotFound
		}
		var d TrustedDevice
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.LastUsedAt = at
		updated, err := json.Marshal(&d)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}
