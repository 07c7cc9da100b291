package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/service"
)

// Messages returned to clients on rejected sessions.
const (
	MsgNoToken      = "No token, authorization denied"
	MsgInvalidToken = "Token is not valid"
)

// Authenticator checks a session token without touching the user store.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.AuthContext, error)
}

// AuthConfig holds configuration for the session middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	Cookies       auth.CookiePolicy
	Metrics       metrics.Recorder
}

// Auth returns a middleware that requires a valid session cookie.
// It verifies the token and injects the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cfg.Cookies.Read(r)
			if token == "" {
				reject(cfg, w, r, metrics.RejectMissing, MsgNoToken)
				return
			}

			authCtx, err := cfg.Authenticator.Authenticate(r.Context(), token)
			if err != nil {
				reject(cfg, w, r, service.RejectReason(err), MsgInvalidToken)
				return
			}

			setLoggedUser(r.Context(), authCtx.UserID)

			ctx := auth.WithSession(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(cfg AuthConfig, w http.ResponseWriter, r *http.Request, reason, message string) {
	cfg.Metrics.IncSessionRejected(reason)
	cfg.Logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	WriteMessages(w, http.StatusUnauthorized, message)
}
