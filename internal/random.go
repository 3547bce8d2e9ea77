package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/google/uuid"
)

const resetSecretSize = 32

// NewID returns a random identifier for persisted records.
func NewID() string {
	return uuid.NewString()
}

// NewResetToken generates a high-entropy one-time token. The plain value
// is returned for one-shot delivery over the side channel; only the hash
// is ever persisted.
func NewResetToken() (plain string, hash [32]byte, err error) {
	var secret [resetSecretSize]byte
	if _, err = rand.Read(secret[:]); err != nil {
		return "", hash, err
	}
	plain = base64.RawURLEncoding.EncodeToString(secret[:])
	return plain, sha256.Sum256([]byte(plain)), nil
}

// HashToken derives the storage key for a token value. Stores index
// refresh and reset tokens by this hash so raw values never touch disk.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}
