package authcore

import (
	"context"
	"sync"
	"time"
)

// PasswordResetTokenRecord is the persisted state of one reset token.
// Only the hash of the token value is stored; the plain value exists
// once, in the email.
type PasswordResetTokenRecord struct {
	ID        string    `json:"id"`
	TokenHash [32]byte  `json:"token_hash"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsUsed    bool      `json:"is_used"`
	UsedAt    time.Time `json:"used_at,omitempty"`
}

// ResetTokenStore persists one-time password reset tokens. Used and
// expired tokens are indistinguishable from tokens that never existed:
// both surface as ErrResetTokenNotFound.
type ResetTokenStore interface {
	// Save persists a new token record.
	Save(ctx context.Context, rec *PasswordResetTokenRecord) error
	// FindValid returns the unused, unexpired record for a token hash.
	FindValid(ctx context.Context, tokenHash [32]byte) (*PasswordResetTokenRecord, error)
	// Consume atomically looks up a valid record and marks it used.
	// IsUsed transitions false to true exactly once; a second Consume of
	// the same token fails with ErrResetTokenNotFound.
	Consume(ctx context.Context, tokenHash [32]byte) (*PasswordResetTokenRecord, error)
	// InvalidateAllForUser marks every outstanding unused token for the
	// user as used and returns how many it touched.
	InvalidateAllForUser(ctx context.Context, userID string) (int, error)
}

// memoryResetStore is the in-process ResetTokenStore. Consume runs under
// one mutex hold, which gives it the required single-use atomicity.
type memoryResetStore struct {
	mu     sync.Mutex
	byHash map[[32]byte]*PasswordResetTokenRecord
	now    func() time.Time
}

// NewMemoryResetStore returns an in-process reset token store.
func NewMemoryResetStore() ResetTokenStore {
	return &memoryResetStore{
		byHash: make(map[[32]byte]*PasswordResetTokenRecord),
		now:    time.Now,
	}
}

func (s *memoryResetStore) Save(_ context.Context, rec *PasswordResetTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.byHash[cp.TokenHash] = &cp
	return nil
}

func (s *memoryResetStore) FindValid(_ context.Context, tokenHash [32]byte) (*PasswordResetTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.validLocked(tokenHash)
	if rec == nil {
		return nil, ErrResetTokenNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memoryResetStore) Consume(_ context.Context, tokenHash [32]byte) (*PasswordResetTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.validLocked(tokenHash)
	if rec == nil {
		return nil, ErrResetTokenNotFound
	}
	rec.IsUsed = true
	rec.UsedAt = s.now()
	cp := *rec
	return &cp, nil
}

func (s *memoryResetStore) InvalidateAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, rec := range s.byHash {
		if rec.UserID == userID && !rec.IsUsed {
			rec.IsUsed = true
			rec.UsedAt = now
			count++
		}
	}
	return count, nil
}

func (s *memoryResetStore) validLocked(tokenHash [32]byte) *PasswordResetTokenRecord {
	rec, ok := s.byHash[tokenHash]
	if !ok || rec.IsUsed || !s.now().Before(rec.ExpiresAt) {
		return nil
	}
	return rec
}
