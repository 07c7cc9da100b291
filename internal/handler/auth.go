package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/handler/dto"
	"github.com/taskdeck/taskdeck/internal/middleware"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/service"
)

// Messages returned by the session endpoints.
const (
	MsgEmailInUse       = "The email is already in use"
	MsgBadCredentials   = "The email or password is incorrect"
	MsgPasswordTooLong  = "Password must be at most 72 characters"
	MsgUsernameTooShort = "Username must be at least 3 characters"
	MsgInvalidInput     = "Invalid input"
)

// SessionService is the part of service.AuthService the handlers use.
type SessionService interface {
	Register(ctx context.Context, username, email, password string) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Logout(ctx context.Context, token string) error
	VerifySession(ctx context.Context, token string) (*model.PublicUser, error)
}

// AuthHandler handles HTTP requests for the session lifecycle.
type AuthHandler struct {
	svc     SessionService
	cookies auth.CookiePolicy
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc SessionService, cookies auth.CookiePolicy, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		cookies: cookies,
		logger:  logger,
	}
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := bindBody[dto.RegisterRequest](w, r)
	if !ok {
		return
	}

	session, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, MsgEmailInUse)
		case errors.Is(err, service.ErrPasswordTooLong):
			writeError(w, http.StatusBadRequest, MsgPasswordTooLong)
		case errors.Is(err, service.ErrUsernameTooShort):
			writeError(w, http.StatusBadRequest, MsgUsernameTooShort)
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, MsgInvalidInput)
		default:
			h.internalError(w, r, err)
		}
		return
	}

	h.logger.Info("user_registered", "user_id", session.User.ID)

	h.cookies.Set(w, session.Token)
	writeJSON(w, http.StatusOK, session.User)
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := bindBody[dto.LoginRequest](w, r)
	if !ok {
		return
	}

	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrBadCredentials) {
			writeError(w, http.StatusBadRequest, MsgBadCredentials)
			return
		}
		h.internalError(w, r, err)
		return
	}

	h.logger.Info("user_logged_in", "user_id", session.User.ID)

	h.cookies.Set(w, session.Token)
	writeJSON(w, http.StatusOK, session.User)
}

// Logout handles POST /api/logout. It always succeeds and always
// overwrites the session cookie with an expired empty value.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), h.cookies.Read(r)); err != nil {
		h.logger.Warn("session revocation failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}

	h.cookies.Clear(w)
	w.WriteHeader(http.StatusOK)
}

// Verify handles GET /api/verify. Without a cookie it answers 200 false.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := h.cookies.Read(r)
	if token == "" {
		writeJSON(w, http.StatusOK, false)
		return
	}

	user, err := h.svc.VerifySession(r.Context(), token)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, MsgUnauthorized)
	case err != nil:
		h.internalError(w, r, err)
	case user == nil:
		writeJSON(w, http.StatusOK, false)
	default:
		writeJSON(w, http.StatusOK, user)
	}
}

func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("internal_error",
		"error", err,
		"request_id", middleware.GetRequestID(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, MsgInternal)
}
