package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/middleware"
	"github.com/taskdeck/taskdeck/internal/repository/memory"
	"github.com/taskdeck/taskdeck/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type routerTestEnv struct {
	router  http.Handler
	store   *memory.Store
	metrics *metrics.InMemoryRecorder
	cookies auth.CookiePolicy
}

func newRouterTestEnv(t *testing.T) *routerTestEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	recorder := metrics.NewInMemory()
	cookies := auth.DefaultCookiePolicy()

	authSvc := service.NewAuthService(store, store, auth.NewCodec([]byte(testSecret)), service.AuthConfig{
		TokenTTL:   time.Hour,
		BcryptCost: 4,
	}, recorder)
	taskSvc := service.NewTaskService(store, recorder)

	router := NewRouter(RouterConfig{
		Logger:        logger,
		Sessions:      authSvc,
		Authenticator: authSvc,
		Tasks:         taskSvc,
		Cookies:       cookies,
		Metrics:       recorder,
		Snapshotter:   recorder,
		DB:            store,
		Cache:         store,
	})

	return &routerTestEnv{
		router:  router,
		store:   store,
		metrics: recorder,
		cookies: cookies,
	}
}

// register creates an account through the API and returns its session token.
func (e *routerTestEnv) register(t *testing.T, username, email string) string {
	t.Helper()

	result := apitest.New().
		Handler(e.router).
		Post("/api/register").
		JSON(map[string]string{
			"username":        username,
			"email":           email,
			"password":        "secret123",
			"confirmPassword": "secret123",
		}).
		Expect(t).
		Status(http.StatusOK).
		End()

	return sessionToken(t, result.Response)
}

func sessionToken(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			return c.Value
		}
	}
	t.Fatal("response did not set the session cookie")
	return ""
}

// ============================================================================
// Session endpoints
// ============================================================================

func TestRouter_Register(t *testing.T) {
	env := newRouterTestEnv(t)

	result := apitest.New().
		Handler(env.router).
		Post("/api/register").
		JSON(`{"username":"alice","email":"Alice@Example.com","password":"secret123","confirmPassword":"secret123"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Present("$.id")).
		Assert(jsonpath.Equal("$.username", "alice")).
		Assert(jsonpath.Equal("$.email", "alice@example.com")).
		Assert(jsonpath.NotPresent("$.password")).
		Assert(jsonpath.NotPresent("$.password_hash")).
		CookiePresent("token").
		End()

	var cookie *http.Cookie
	for _, c := range result.Response.Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("missing session cookie")
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode {
		t.Errorf("unexpected cookie flags: %+v", cookie)
	}
	if cookie.MaxAge != 0 || !cookie.Expires.IsZero() {
		t.Errorf("session cookie must not carry an expiry: %+v", cookie)
	}
}

func TestRouter_Register_DuplicateEmail(t *testing.T) {
	env := newRouterTestEnv(t)
	env.register(t, "alice", "alice@example.com")

	apitest.New().
		Handler(env.router).
		Post("/api/register").
		JSON(`{"username":"alice2","email":"alice@example.com","password":"secret123","confirmPassword":"secret123"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Contains("$.message", MsgEmailInUse)).
		CookieNotPresent("token").
		End()

	if got := env.metrics.Snapshot().UsersRegistered; got != 1 {
		t.Errorf("expected one registered user, got %d", got)
	}
}

func TestRouter_Register_Validation(t *testing.T) {
	env := newRouterTestEnv(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{
			name:    "passwords differ",
			body:    `{"username":"alice","email":"alice@example.com","password":"secret123","confirmPassword":"secret321"}`,
			status:  http.StatusBadRequest,
			message: "Passwords do not match",
		},
		{
			name:    "short username",
			body:    `{"username":"al","email":"alice@example.com","password":"secret123","confirmPassword":"secret123"}`,
			status:  http.StatusBadRequest,
			message: "Username must be at least 3 characters",
		},
		{
			name:    "short username after trimming",
			body:    `{"username":"  ab  ","email":"alice@example.com","password":"secret123","confirmPassword":"secret123"}`,
			status:  http.StatusBadRequest,
			message: "Username must be at least 3 characters",
		},
		{
			name:    "bad email",
			body:    `{"username":"alice","email":"not-an-email","password":"secret123","confirmPassword":"secret123"}`,
			status:  http.StatusBadRequest,
			message: "Please enter a valid email address",
		},
		{
			name:    "broken json",
			body:    `{"username":`,
			status:  http.StatusBadRequest,
			message: middleware.MsgInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apitest.New().
				Handler(env.router).
				Post("/api/register").
				Body(tt.body).
				ContentType("application/json").
				Expect(t).
				Status(tt.status).
				Assert(jsonpath.Contains("$.message", tt.message)).
				End()
		})
	}
}

func TestRouter_Login(t *testing.T) {
	env := newRouterTestEnv(t)
	env.register(t, "alice", "alice@example.com")

	apitest.New().
		Handler(env.router).
		Post("/api/login").
		JSON(`{"email":"alice@example.com","password":"secret123"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.username", "alice")).
		CookiePresent("token").
		End()
}

func TestRouter_Login_FailuresLookAlike(t *testing.T) {
	env := newRouterTestEnv(t)
	env.register(t, "alice", "alice@example.com")

	bodies := map[string]string{
		"wrong password": `{"email":"alice@example.com","password":"wrong-password"}`,
		"unknown email":  `{"email":"bob@example.com","password":"secret123"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			apitest.New().
				Handler(env.router).
				Post("/api/login").
				JSON(body).
				Expect(t).
				Status(http.StatusBadRequest).
				Body(`{"message":["` + MsgBadCredentials + `"]}`).
				CookieNotPresent("token").
				End()
		})
	}

	if got := env.metrics.Snapshot().LoginsFailed; got != 2 {
		t.Errorf("expected 2 failed logins, got %d", got)
	}
}

func TestRouter_Verify(t *testing.T) {
	env := newRouterTestEnv(t)
	token := env.register(t, "alice", "alice@example.com")

	t.Run("anonymous", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Get("/api/verify").
			Expect(t).
			Status(http.StatusOK).
			Body(`false`).
			End()
	})

	t.Run("valid session", func(t *testing.T) {
		apitest.New().
			Handler(env.router).
			Get("/api/verify").
			Cookie("token", token).
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.email", "alice@example.com")).
			End()
	})

	t.Run("tampered token", func(t *testing.T) {
		tampered := token[:len(token)-4] + strings.Repeat("A", 4)
		if tampered == token {
			tampered = token[:len(token)-4] + "BBBB"
		}
		apitest.New().
			Handler(env.router).
			Get("/api/verify").
			Cookie("token", tampered).
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Contains("$.message", MsgUnauthorized)).
			End()
	})
}

func TestRouter_LogoutRevokesSession(t *testing.T) {
	env := newRouterTestEnv(t)
	token := env.register(t, "alice", "alice@example.com")

	result := apitest.New().
		Handler(env.router).
		Post("/api/logout").
		Cookie("token", token).
		Expect(t).
		Status(http.StatusOK).
		End()

	var cleared *http.Cookie
	for _, c := range result.Response.Cookies() {
		if c.Name == "token" {
			cleared = c
		}
	}
	if cleared == nil || cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected an expired empty cookie, got %+v", cleared)
	}

	// The copied token no longer works anywhere.
	apitest.New().
		Handler(env.router).
		Get("/api/verify").
		Cookie("token", token).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.New().
		Handler(env.router).
		Get("/api/tasks").
		Cookie("token", token).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Contains("$.message", middleware.MsgInvalidToken)).
		End()

	if got := env.metrics.Snapshot().SessionsRejected[metrics.RejectRevoked]; got != 1 {
		t.Errorf("expected 1 revoked rejection, got %d", got)
	}
}

func TestRouter_LogoutWithoutSession(t *testing.T) {
	env := newRouterTestEnv(t)

	apitest.New().
		Handler(env.router).
		Post("/api/logout").
		Expect(t).
		Status(http.StatusOK).
		CookiePresent("token").
		End()
}

// ============================================================================
// Task endpoints
// ============================================================================

func TestRouter_Tasks_RequireSession(t *testing.T) {
	env := newRouterTestEnv(t)

	apitest.New().
		Handler(env.router).
		Get("/api/tasks").
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"message":["` + middleware.MsgNoToken + `"]}`).
		End()

	apitest.New().
		Handler(env.router).
		Post("/api/tasks").
		Cookie("token", "garbage").
		JSON(`{"title":"t","description":"d"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"message":["` + middleware.MsgInvalidToken + `"]}`).
		End()
}

func TestRouter_Tasks_Lifecycle(t *testing.T) {
	env := newRouterTestEnv(t)
	token := env.register(t, "alice", "alice@example.com")

	apitest.New().
		Handler(env.router).
		Get("/api/tasks").
		Cookie("token", token).
		Expect(t).
		Status(http.StatusOK).
		Body(`[]`).
		End()

	apitest.New().
		Handler(env.router).
		Post("/api/tasks").
		Cookie("token", token).
		JSON(`{"title":"Buy milk","description":"2 liters"}`).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.title", "Buy milk")).
		Assert(jsonpath.Equal("$.description", "2 liters")).
		Assert(jsonpath.Present("$.id")).
		End()

	tasks, err := env.store.ListTasksByOwner(t.Context(), ownerOf(t, token))
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one stored task, got %d (%v)", len(tasks), err)
	}
	id := tasks[0].ID

	apitest.New().
		Handler(env.router).
		Get("/api/tasks/"+id).
		Cookie("token", token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.id", id)).
		Assert(jsonpath.Equal("$.title", "Buy milk")).
		End()

	apitest.New().
		Handler(env.router).
		Get("/api/tasks").
		Cookie("token", token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$", 1)).
		End()

	apitest.New().
		Handler(env.router).
		Put("/api/tasks/"+id).
		Cookie("token", token).
		JSON(`{"title":"Buy oat milk","description":"1 liter"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.title", "Buy oat milk")).
		End()

	apitest.New().
		Handler(env.router).
		Delete("/api/tasks/"+id).
		Cookie("token", token).
		Expect(t).
		Status(http.StatusNoContent).
		End()

	apitest.New().
		Handler(env.router).
		Get("/api/tasks/"+id).
		Cookie("token", token).
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"message":["` + MsgTaskNotFound + `"]}`).
		End()

	snap := env.metrics.Snapshot()
	if snap.TasksCreated != 1 || snap.TasksUpdated != 1 || snap.TasksDeleted != 1 {
		t.Errorf("unexpected task counters: %+v", snap)
	}
}

func TestRouter_Tasks_OtherOwnerIsNotFound(t *testing.T) {
	env := newRouterTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com")
	bob := env.register(t, "bob", "bob@example.com")

	apitest.New().
		Handler(env.router).
		Post("/api/tasks").
		Cookie("token", alice).
		JSON(`{"title":"private","description":"alice only"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	tasks, _ := env.store.ListTasksByOwner(t.Context(), ownerOf(t, alice))
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
	id := tasks[0].ID

	apitest.New().
		Handler(env.router).
		Get("/api/tasks/"+id).
		Cookie("token", bob).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	apitest.New().
		Handler(env.router).
		Put("/api/tasks/"+id).
		Cookie("token", bob).
		JSON(`{"title":"mine now","description":"x"}`).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	apitest.New().
		Handler(env.router).
		Delete("/api/tasks/"+id).
		Cookie("token", bob).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	apitest.New().
		Handler(env.router).
		Get("/api/tasks").
		Cookie("token", bob).
		Expect(t).
		Status(http.StatusOK).
		Body(`[]`).
		End()
}

func TestRouter_Tasks_Validation(t *testing.T) {
	env := newRouterTestEnv(t)
	token := env.register(t, "alice", "alice@example.com")

	apitest.New().
		Handler(env.router).
		Post("/api/tasks").
		Cookie("token", token).
		JSON(`{}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"message":["Title is required","Description is required"]}`).
		End()
}

// ============================================================================
// Infrastructure endpoints
// ============================================================================

func TestRouter_NotFound(t *testing.T) {
	env := newRouterTestEnv(t)

	apitest.New().
		Handler(env.router).
		Get("/api/nope").
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Contains("$.message", MsgNotFound)).
		End()
}

func TestRouter_Metrics(t *testing.T) {
	env := newRouterTestEnv(t)
	env.register(t, "alice", "alice@example.com")

	apitest.New().
		Handler(env.router).
		Get("/metrics").
		Expect(t).
		Status(http.StatusOK).
		Header("Content-Type", "text/plain; version=0.0.4").
		Assert(bodyContains(
			"taskdeck_users_registered_total 1",
			`taskdeck_logins_total{status="success"} 0`,
			`taskdeck_sessions_rejected_total{reason="revoked"} 0`,
		)).
		End()
}

func bodyContains(lines ...string) func(*http.Response, *http.Request) error {
	return func(res *http.Response, _ *http.Request) error {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if !strings.Contains(string(body), line) {
				return fmt.Errorf("body missing %q:\n%s", line, body)
			}
		}
		return nil
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	env := newRouterTestEnv(t)

	apitest.New().
		Handler(env.router).
		Get("/healthz").
		Expect(t).
		Status(http.StatusOK).
		Header("X-Content-Type-Options", "nosniff").
		HeaderPresent("X-Request-ID").
		End()
}

// ownerOf returns the user id a session token is bound to.
func ownerOf(t *testing.T, token string) string {
	t.Helper()
	claims, err := auth.NewCodec([]byte(testSecret)).Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	return claims.UserID
}
