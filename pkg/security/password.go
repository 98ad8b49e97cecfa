// Package security implements the default PasswordHasher and Encryptor
// collaborators. Neither the user registry nor the append/poll pipeline
// depends on bcrypt or XChaCha20-Poly1305 directly: they depend on these
// two interfaces, so a deployment can swap in a different primitive without
// touching engine code.
package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 8

// MaxPasswordLength is the maximum accepted plaintext password length.
// bcrypt silently truncates beyond 72 bytes, so longer passwords are
// rejected outright rather than letting the truncation happen unnoticed.
const MaxPasswordLength = 72

// DefaultBcryptCost is the cost parameter used by BcryptHasher when none is
// given explicitly.
const DefaultBcryptCost = 10

var (
	// ErrPasswordTooShort is returned when a password is below MinPasswordLength.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when a password exceeds MaxPasswordLength.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// PasswordHasher hashes and verifies user passwords. Hash returns an error
// if password fails ValidatePassword; Verify never errors, a malformed hash
// is simply treated as a non-match.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// ValidatePassword reports whether password satisfies the length bounds
// every PasswordHasher implementation enforces before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// BcryptHasher is the default PasswordHasher.
type BcryptHasher struct {
	cost int
}

var _ PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher returns a BcryptHasher using DefaultBcryptCost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: DefaultBcryptCost}
}

// NewBcryptHasherWithCost returns a BcryptHasher using an explicit cost,
// for tests that want fast hashing or deployments that want a higher one.
func NewBcryptHasherWithCost(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

// Hash validates password against MinPasswordLength/MaxPasswordLength and
// returns its bcrypt hash.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether hash was produced with a lower cost than h is
// currently configured for, e.g. after raising DefaultBcryptCost in a
// config change.
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}
