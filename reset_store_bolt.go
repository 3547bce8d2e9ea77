package authcore

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var resetRecordBucket = []byte("reset_records")

// boltResetStore is the durable ResetTokenStore. Records are keyed by
// token hash; Consume's lookup and used-flag flip share one Update
// transaction.
type boltResetStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltResetStore returns a reset token store persisted in the given
// bbolt database.
func NewBoltResetStore(db *bbolt.DB) (ResetTokenStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resetRecordBucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &boltResetStore{db: db, now: time.Now}, nil
}

func (s *boltResetStore) Save(_ context.Context, rec *PasswordResetTokenRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(resetRecordBucket).Put(rec.TokenHash[:], data)
	})
}

func (s *boltResetStore) FindValid(_ context.Context, tokenHash [32]byte) (*PasswordResetTokenRecord, error) {
	var rec *PasswordResetTokenRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = s.validInTx(tx, tokenHash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *boltResetStore) Consume(_ context.Context, tokenHash [32]byte) (*PasswordResetTokenRecord, error) {
	var rec *PasswordResetTokenRecord
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		rec, err = s.validInTx(tx, tokenHash)
		if err != nil {
			return err
		}
		rec.IsUsed = true
		rec.UsedAt = s.now()
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(resetRecordBucket).Put(tokenHash[:], data)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *boltResetStore) InvalidateAllForUser(_ context.Context, userID string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		now := s.now()
		b := tx.Bucket(resetRecordBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec PasswordResetTokenRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.UserID != userID || rec.IsUsed {
				continue
			}
			rec.IsUsed = true
			rec.UsedAt = now
			data, err := json.Marshal(&rec)
			if err != nil {
				return err
			}
			if err := b.Put(k, data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *boltResetStore) validInTx(tx *bbolt.Tx, tokenHash [32]byte) (*PasswordResetTokenRecord, error) {
	data := tx.Bucket(resetRecordBucket).Get(tokenHash[:])
	if data == nil {
		return nil, ErrResetTokenNotFound
	}
	var rec PasswordResetTokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.IsUsed || !s.now().Before(rec.ExpiresAt) {
		return nil, ErrResetTokenNotFound
	}
	return &rec, nil
}
