package authcore

import (
	"context"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var (
	refreshRecordBucket = []byte("refresh_records")
	refreshHashBucket   = []byte("refresh_hash_idx")
)

// boltRefreshStore is the durable RefreshSessionStore. Every mutation
// runs inside a single bbolt Update transaction, so Rotate commits the
// revoke and the create together or not at all.
type boltRefreshStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewBoltRefreshStore returns a refresh session store persisted in the
// given bbolt database.
func NewBoltRefreshStore(db *bbolt.DB) (RefreshSessionStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(refreshRecordBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(refreshHashBucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &boltRefreshStore{db: db, now: time.Now}, nil
}

func (s *boltRefreshStore) Store(_ context.Context, rec *RefreshTokenRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putRefreshRecord(tx, rec)
	})
}

func putRefreshRecord(tx *bbolt.Tx, rec *RefreshTokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := tx.Bucket(refreshRecordBucket).Put([]byte(rec.ID), data); err != nil {
		return err
	}
	return tx.Bucket(refreshHashBucket).Put(rec.TokenHash[:], []byte(rec.ID))
}

func getRefreshRecord(tx *bbolt.Tx, id []byte) (*RefreshTokenRecord, error) {
	data := tx.Bucket(refreshRecordBucket).Get(id)
	if data == nil {
		return nil, ErrTokenNotFound
	}
	var rec RefreshTokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *boltRefreshStore) Find(_ context.Context, tokenHash [32]byte) (*RefreshTokenRecord, error) {
	var rec *RefreshTokenRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(refreshHashBucket).Get(tokenHash[:])
		if id == nil {
			return ErrTokenNotFound
		}
		var err error
		rec, err = getRefreshRecord(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *boltRefreshStore) FindValid(ctx context.Context, tokenHash [32]byte) (*RefreshTokenRecord, error) {
	rec, err := s.Find(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if rec.IsRevoked || !s.now().Before(rec.ExpiresAt) {
		return nil, ErrTokenNotFound
	}
	return rec, nil
}

func (s *boltRefreshStore) Revoke(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRefreshRecord(tx, []byte(id))
		if err != nil {
			return err
		}
		if rec.IsRevoked {
			return nil
		}
		rec.IsRevoked = true
		rec.RevokedAt = s.now()
		return putRefreshRecord(tx, rec)
	})
}

func (s *boltRefreshStore) RevokeAll(_ context.Context, userID string) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		now := s.now()
		b := tx.Bucket(refreshRecordBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec RefreshTokenRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.UserID != userID || rec.IsRevoked {
				continue
			}
			rec.IsRevoked = true
			rec.RevokedAt = now
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

func (s *boltRefreshStore) Rotate(_ context.Context, oldID string, newRec *RefreshTokenRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		old, err := getRefreshRecord(tx, []byte(oldID))
		if err != nil {
			return err
		}
		if old.IsRevoked {
			return ErrTokenNotFound
		}
		old.IsRevoked = true
		old.RevokedAt = s.now()
		if err := putRefreshRecord(tx, old); err != nil {
			return err
		}
		// Same transaction: a failure here rolls the revocation back.
		return putRefreshRecord(tx, newRec)
	})
}

func (s *boltRefreshStore) Purge(_ context.Context, before time.Time) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(refreshRecordBucket)
		idx := tx.Bucket(refreshHashBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec RefreshTokenRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if !rec.ExpiresAt.Before(before) {
				continue
			}
			if err := idx.Delete(rec.TokenHash[:]); err != nil {
				return err
			}
			if err := c.Delete(); err != nil {
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
