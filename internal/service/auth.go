package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// SessionDenylist records revoked session token ids.
type SessionDenylist interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig holds session settings for AuthService.
type AuthConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
	// Now overrides the clock used for revocation TTLs. Defaults to time.Now.
	Now func() time.Time
}

// Session is an issued session: the public user and its signed token.
type Session struct {
	User  *model.PublicUser
	Token string
}

// AuthService handles registration, login, logout and session checks.
type AuthService struct {
	users    UserStore
	denylist SessionDenylist
	codec    *auth.Codec
	ttl      time.Duration
	cost     int
	now      func() time.Time
	metrics  metrics.Recorder
}

// NewAuthService creates a new AuthService.
// denylist may be nil, in which case logout only clears the client cookie.
func NewAuthService(users UserStore, denylist SessionDenylist, codec *auth.Codec, cfg AuthConfig, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = auth.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthService{
		users:    users,
		denylist: denylist,
		codec:    codec,
		ttl:      cfg.TokenTTL,
		cost:     cfg.BcryptCost,
		now:      cfg.Now,
		metrics:  recorder,
	}
}

// MinUsernameLength is the shortest username accepted after trimming.
const MinUsernameLength = 3

// Register creates an account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return nil, ErrUsernameTooShort
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("%w: lookup email: %w", ErrStorage, err)
	}

	hash, err := auth.HashPassword(password, s.cost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: create user: %w", ErrStorage, err)
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}

	s.metrics.IncUserRegistered()
	return session, nil
}

// Login checks credentials and opens a session.
// It returns ErrUserNotFound or ErrBadCredentials; callers that face clients
// should not tell the two apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnCompare(password)
			s.metrics.IncLogin(metrics.LoginFailed)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: lookup email: %w", ErrStorage, err)
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil && !errors.Is(err, auth.ErrPasswordTooLong) {
		slog.ErrorContext(ctx, "stored password hash is unreadable", "user_id", user.ID, "error", err)
	}
	if !match {
		s.metrics.IncLogin(metrics.LoginFailed)
		return nil, ErrBadCredentials
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return session, nil
}

// VerifySession resolves a session token to the current public user.
// An empty token is an anonymous caller and yields (nil, nil).
func (s *AuthService) VerifySession(ctx context.Context, token string) (*model.PublicUser, error) {
	if token == "" {
		return nil, nil
	}

	ac, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, ac.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%w: lookup user: %w", ErrStorage, err)
	}

	return user.Public(), nil
}

// Authenticate checks a session token's signature, expiry and revocation
// without touching the user store. Every failure wraps ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.AuthContext, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrMissingToken)
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			// Fail open: the token is still signed and unexpired.
			slog.WarnContext(ctx, "session denylist unavailable", "error", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrSessionRevoked)
		}
	}

	return &model.AuthContext{
		UserID:    claims.UserID,
		Username:  claims.Username,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// Logout revokes the session token until its natural expiry.
// Tokens that no longer verify need no revocation and are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	s.metrics.IncLogout()

	if token == "" || s.denylist == nil {
		return nil
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil //nolint:nilerr
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.denylist.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("%w: revoke session: %w", ErrStorage, err)
	}

	return nil
}

func (s *AuthService) openSession(user *model.User) (*Session, error) {
	token, err := s.codec.Issue(auth.Claims{
		UserID:   user.ID,
		Username: user.Username,
	}, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	return &Session{User: user.Public(), Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
