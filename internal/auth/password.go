// Package auth provides password hashing, session tokens and session cookies.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = 10

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

var (
	// ErrInvalidHash indicates the stored hash is not a bcrypt hash.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrPasswordTooLong indicates the password exceeds bcrypt's 72 byte input limit.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// HashPassword creates a salted bcrypt hash of the password.
// A cost outside bcrypt's accepted range falls back to DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword checks if the password matches the hash.
// A mismatch is reported as false with a nil error. A password longer than
// MaxPasswordBytes can never match and yields ErrPasswordTooLong.
func VerifyPassword(password, hash string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("taskdeck-timing-equalizer"), DefaultCost)
	return hash
})

// BurnCompare runs a bcrypt comparison against a fixed hash.
// Login calls it for unknown emails so both failure paths cost the same.
func BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}
