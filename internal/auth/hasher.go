// ABOUTME: Password hashing abstraction backed by bcrypt
// ABOUTME: Includes the dummy-compare helper used for enumeration resistance

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies passwords. Implementations must be safe
// for concurrent use.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost. Cost 0 selects
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt digest of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest.
func (h *BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// dummyHash is a fixed bcrypt digest used for timing-safe comparison when a
// user doesn't exist. This prevents timing attacks that could enumerate
// registered emails.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// dummyVerify burns the same time as a real verification.
func dummyVerify(h PasswordHasher, plain string) {
	_ = h.Verify(plain, dummyHash)
}

// GenerateUnusablePassword returns a random credential for accounts that
// must never authenticate via password (federated logins). The value is
// discarded after hashing, so nobody can ever present it.
func GenerateUnusablePassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating placeholder credential: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
