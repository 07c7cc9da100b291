// Package service provides business logic for the application.
package service

import (
	"errors"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
)

// Service errors.
var (
	ErrDuplicateEmail   = errors.New("email already in use")
	ErrUserNotFound     = errors.New("user not found")
	ErrBadCredentials   = errors.New("bad credentials")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMissingToken     = errors.New("no session token")
	ErrSessionRevoked   = errors.New("session has been revoked")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrUsernameTooShort = errors.New("username too short")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTaskNotFound     = errors.New("task not found")
	ErrStorage          = errors.New("storage failure")
)

// RejectReason classifies an authentication failure for logs and metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return metrics.RejectMissing
	case errors.Is(err, ErrSessionRevoked):
		return metrics.RejectRevoked
	case errors.Is(err, auth.ErrExpired):
		return metrics.RejectExpired
	default:
		return metrics.RejectInvalid
	}
}
