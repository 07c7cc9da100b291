package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/service"
)

type authenticatorFunc func(ctx context.Context, token string) (*model.AuthContext, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*model.AuthContext, error) {
	return f(ctx, token)
}

func TestAuth(t *testing.T) {
	t.Parallel()

	authn := authenticatorFunc(func(_ context.Context, token string) (*model.AuthContext, error) {
		switch token {
		case "good":
			return &model.AuthContext{UserID: "u1", TokenID: "jti", ExpiresAt: time.Now().Add(time.Hour)}, nil
		case "revoked":
			return nil, fmt.Errorf("%w: %w", service.ErrUnauthorized, service.ErrSessionRevoked)
		case "expired":
			return nil, fmt.Errorf("%w: %w", service.ErrUnauthorized, auth.ErrExpired)
		default:
			return nil, fmt.Errorf("%w: %w", service.ErrUnauthorized, auth.ErrInvalidSignature)
		}
	})

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
		wantBody   string
		wantReason string
	}{
		{"no cookie", "", http.StatusUnauthorized, MsgNoToken, metrics.RejectMissing},
		{"valid", "good", http.StatusOK, "", ""},
		{"revoked", "revoked", http.StatusUnauthorized, MsgInvalidToken, metrics.RejectRevoked},
		{"expired", "expired", http.StatusUnauthorized, MsgInvalidToken, metrics.RejectExpired},
		{"tampered", "tampered", http.StatusUnauthorized, MsgInvalidToken, metrics.RejectInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := metrics.NewInMemory()
			var seenUser string
			handler := Auth(AuthConfig{
				Logger:        discardLogger(),
				Authenticator: authn,
				Cookies:       auth.DefaultCookiePolicy(),
				Metrics:       rec,
			})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenUser = auth.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "u1", seenUser)
				return
			}

			assert.Empty(t, seenUser)
			assert.JSONEq(t, `{"message":["`+tt.wantBody+`"]}`, w.Body.String())
			assert.Equal(t, uint64(1), rec.Snapshot().SessionsRejected[tt.wantReason])
		})
	}
}
