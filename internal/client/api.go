// Package client is a Go client for the taskdeck HTTP API.
// API speaks the wire protocol and keeps the session cookie in a jar;
// Session and Tasks hold client-side state on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

// DefaultCookieName is the session cookie the server sets unless configured otherwise.
const DefaultCookieName = "token"

// Sentinels matched by APIError.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("taskdeck: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("taskdeck: %d %s", e.Status, strings.Join(e.Messages, "; "))
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// TaskInput is the body of a task create or update request.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// API calls the taskdeck HTTP API. It is safe for concurrent use.
type API struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	cookieName string
}

// Option configures an API.
type Option func(*API)

// WithHTTPClient uses c for requests. The client's cookie jar is replaced
// with the API's own jar.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) {
		a.httpClient = c
	}
}

// WithCookieName sets the session cookie name.
func WithCookieName(name string) Option {
	return func(a *API) {
		a.cookieName = name
	}
}

// New creates an API client for the server at baseURL.
func New(baseURL string, opts ...Option) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	a := &API{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cookieName: DefaultCookieName,
	}
	for _, opt := range opts {
		opt(a)
	}

	client := *a.httpClient
	client.Jar = jar
	a.httpClient = &client
	a.jar = jar

	return a, nil
}

// Register creates an account and stores the session cookie.
func (a *API) Register(ctx context.Context, in RegisterInput) (*model.PublicUser, error) {
	var user model.PublicUser
	if err := a.do(ctx, http.MethodPost, "/api/register", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login opens a session and stores the session cookie.
func (a *API) Login(ctx context.Context, email, password string) (*model.PublicUser, error) {
	body := map[string]string{"email": email, "password": password}

	var user model.PublicUser
	if err := a.do(ctx, http.MethodPost, "/api/login", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the session on the server. The server expires the cookie.
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// Verify returns the user of the stored session, or nil when the server
// reports no session.
func (a *API) Verify(ctx context.Context) (*model.PublicUser, error) {
	var raw json.RawMessage
	if err := a.do(ctx, http.MethodGet, "/api/verify", nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var user model.PublicUser
	if err := json.Unmarshal(trimmed, &user); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &user, nil
}

// ListTasks returns the caller's tasks, newest first.
func (a *API) ListTasks(ctx context.Context) ([]*model.Task, error) {
	tasks := make([]*model.Task, 0)
	if err := a.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task owned by the caller.
func (a *API) CreateTask(ctx context.Context, in TaskInput) (*model.Task, error) {
	var task model.Task
	if err := a.do(ctx, http.MethodPost, "/api/tasks", in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask returns one of the caller's tasks.
func (a *API) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := a.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask replaces title and description of one of the caller's tasks.
func (a *API) UpdateTask(ctx context.Context, id string, in TaskInput) (*model.Task, error) {
	var task model.Task
	if err := a.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes one of the caller's tasks.
func (a *API) DeleteTask(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// SessionToken returns the session token held in the jar, or "".
func (a *API) SessionToken() string {
	for _, c := range a.jar.Cookies(a.baseURL) {
		if c.Name == a.cookieName {
			return c.Value
		}
	}
	return ""
}

// SetSessionToken stores token as the session cookie, e.g. one restored from disk.
func (a *API) SetSessionToken(token string) {
	a.jar.SetCookies(a.baseURL, []*http.Cookie{{
		Name:   a.cookieName,
		Value:  token,
		Path:   "/",
		Secure: a.baseURL.Scheme == "https",
	}})
}

// ClearSession drops the session cookie from the jar.
func (a *API) ClearSession() {
	a.jar.SetCookies(a.baseURL, []*http.Cookie{{
		Name:   a.cookieName,
		Path:   "/",
		MaxAge: -1,
	}})
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Message []string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Messages = body.Message
	}
	return apiErr
}
