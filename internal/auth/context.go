package auth

import (
	"context"

	"github.com/taskdeck/taskdeck/internal/model"
)

type sessionKey struct{}

// WithSession attaches the verified session identity to ctx.
func WithSession(ctx context.Context, session *model.AuthContext) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the identity set by the session middleware,
// or nil on routes that do not require a session.
func SessionFromContext(ctx context.Context) *model.AuthContext {
	session, _ := ctx.Value(sessionKey{}).(*model.AuthContext)
	return session
}

// UserIDFromContext returns the caller's user id, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if session := SessionFromContext(ctx); session != nil {
		return session.UserID
	}
	return ""
}
