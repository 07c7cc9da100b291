package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrSigning indicates a token could not be signed.
	ErrSigning = errors.New("token signing failed")
	// ErrInvalidSignature indicates the token signature does not match the secret.
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("token has expired")
	// ErrMalformed indicates the token could not be decoded.
	ErrMalformed = errors.New("token is malformed")
)

// Claims is the signed payload of a session token.
// ID (jti) is always set and is the key used to revoke a single session.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 session tokens.
// It is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock overrides the time source used for iat, exp and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a Codec signing with secret.
func NewCodec(secret []byte, opts ...CodecOption) *Codec {
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs claims with an expiry ttl from now.
// IssuedAt and ExpiresAt are overwritten; a fresh jti is assigned when ID is empty.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("%w: empty secret", ErrSigning)
	}

	now := c.now()
	if claims.ID == "" {
		claims.ID = ulid.Make().String()
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify decodes token and checks its signature and expiry.
func (c *Codec) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformed
	}
	if len(c.secret) == 0 {
		return nil, ErrInvalidSignature
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if claims.UserID == "" || claims.ID == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
