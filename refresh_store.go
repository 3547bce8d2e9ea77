package authcore

import (
	"context"
	"sync"
	"time"
)

// RefreshTokenRecord is the persisted state of one refresh token. The
// token value itself is never stored; records are keyed by the SHA-256
// of the compact token.
type RefreshTokenRecord struct {
	ID        string    `json:"id"`
	TokenHash [32]byte  `json:"token_hash"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	RevokedAt time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshSessionStore persists refresh-token records. At most one
// non-revoked record is current per rotation chain; Rotate enforces that
// by revoking the old record and creating the new one as a single
// all-or-nothing unit.
type RefreshSessionStore interface {
	// Store persists a new record.
	Store(ctx context.Context, rec *RefreshTokenRecord) error
	// Find returns the record for a token hash regardless of revocation
	// or expiry, or ErrTokenNotFound.
	Find(ctx context.Context, tokenHash [32]byte) (*RefreshTokenRecord, error)
	// FindValid is Find restricted to non-revoked, non-expired records.
	FindValid(ctx context.Context, tokenHash [32]byte) (*RefreshTokenRecord, error)
	// Revoke marks a record revoked by ID. Revoking an already revoked
	// record is a no-op.
	Revoke(ctx context.Context, id string) error
	// RevokeAll revokes every non-revoked record for a user and returns
	// how many it touched.
	RevokeAll(ctx context.Context, userID string) (int, error)
	// Rotate atomically revokes the record identified by oldID and
	// persists newRec. It fails with ErrTokenNotFound when the old record
	// is missing or already revoked, which is how concurrent refreshes of
	// the same token lose the race.
	Rotate(ctx context.Context, oldID string, newRec *RefreshTokenRecord) error
	// Purge deletes records that expired before the given time and
	// returns how many it removed.
	Purge(ctx context.Context, before time.Time) (int, error)
}

// memoryRefreshStore is the in-process RefreshSessionStore. All state
// mutates under one mutex, so Rotate is trivially atomic.
type memoryRefreshStore struct {
	mu     sync.Mutex
	byID   map[string]*RefreshTokenRecord
	byHash map[[32]byte]string
	now    func() time.Time
}

// NewMemoryRefreshStore returns an in-process refresh session store,
// suitable for tests and single-instance deployments.
func NewMemoryRefreshStore() RefreshSessionStore {
	return &memoryRefreshStore{
		byID:   make(map[string]*RefreshTokenRecord),
		byHash: make(map[[32]byte]string),
		now:    time.Now,
	}
}

func (s *memoryRefreshStore) Store(_ context.Context, rec *RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(rec)
}

func (s *memoryRefreshStore) storeLocked(rec *RefreshTokenRecord) error {
	cp := *rec
	s.byID[cp.ID] = &cp
	s.byHash[cp.TokenHash] = cp.ID
	return nil
}

func (s *memoryRefreshStore) Find(_ context.Context, tokenHash [32]byte) (*RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[tokenHash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	rec := s.byID[id]
	if rec == nil {
		return nil, ErrTokenNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memoryRefreshStore) FindValid(ctx context.Context, tokenHash [32]byte) (*RefreshTokenRecord, error) {
	rec, err := s.Find(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if rec.IsRevoked || !s.now().Before(rec.ExpiresAt) {
		return nil, ErrTokenNotFound
	}
	return rec, nil
}

func (s *memoryRefreshStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrTokenNotFound
	}
	if !rec.IsRevoked {
		rec.IsRevoked = true
		rec.RevokedAt = s.now()
	}
	return nil
}

func (s *memoryRefreshStore) RevokeAll(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, rec := range s.byID {
		if rec.UserID == userID && !rec.IsRevoked {
			rec.IsRevoked = true
			rec.RevokedAt = now
			count++
		}
	}
	return count, nil
}

func (s *memoryRefreshStore) Rotate(_ context.Context, oldID string, newRec *RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[oldID]
	if !ok || old.IsRevoked {
		return ErrTokenNotFound
	}
	old.IsRevoked = true
	old.RevokedAt = s.now()
	return s.storeLocked(newRec)
}

func (s *memoryRefreshStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, rec := range s.byID {
		if rec.ExpiresAt.Before(before) {
			delete(s.byHash, rec.TokenHash)
			delete(s.byID, id)
			count++
		}
	}
	return count, nil
}
