// Package model defines domain entities for the application.
package model

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the projection of a User returned to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public returns the client-facing projection of the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// AuthContext holds the identity of an authenticated request.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID    string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}
