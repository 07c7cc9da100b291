package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

// DefaultErrorTTL is how long published errors stay in the state.
const DefaultErrorTTL = 5 * time.Second

// SessionAPI is the server surface the Session controller needs.
type SessionAPI interface {
	Register(ctx context.Context, in RegisterInput) (*model.PublicUser, error)
	Login(ctx context.Context, email, password string) (*model.PublicUser, error)
	Logout(ctx context.Context) error
	Verify(ctx context.Context) (*model.PublicUser, error)
	SessionToken() string
	ClearSession()
}

// State is a snapshot of the session controller.
type State struct {
	User          *model.PublicUser
	Authenticated bool
	Loading       bool
	Errors        []string
}

// Listener receives a state snapshot after every change.
type Listener func(State)

// Session tracks who is signed in and notifies subscribers of changes.
// Listeners run outside the controller's lock, in the goroutine that
// caused the change.
type Session struct {
	api      SessionAPI
	errorTTL time.Duration

	bootstrap sync.Once

	mu         sync.Mutex
	state      State
	listeners  map[uint64]Listener
	nextID     uint64
	errorTimer *time.Timer
	errorGen   uint64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithErrorTTL sets how long errors stay published before they clear.
func WithErrorTTL(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.errorTTL = d
		}
	}
}

// NewSession creates a controller over api. It starts in the loading state
// until Bootstrap runs.
func NewSession(api SessionAPI, opts ...SessionOption) *Session {
	s := &Session{
		api:       api,
		errorTTL:  DefaultErrorTTL,
		state:     State{Loading: true},
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for state changes and returns its unsubscribe func.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// Bootstrap restores the session from the stored cookie. Only the first
// call does any work. Loading is cleared whatever the outcome.
func (s *Session) Bootstrap(ctx context.Context) error {
	var err error
	s.bootstrap.Do(func() {
		err = s.restore(ctx)
	})
	return err
}

func (s *Session) restore(ctx context.Context) error {
	if s.api.SessionToken() == "" {
		s.update(func(st *State) {
			st.User = nil
			st.Authenticated = false
			st.Loading = false
		})
		return nil
	}

	user, err := s.api.Verify(ctx)
	s.update(func(st *State) {
		st.Loading = false
		st.User = user
		st.Authenticated = err == nil && user != nil
		if !st.Authenticated {
			st.User = nil
		}
	})

	if errors.Is(err, ErrUnauthorized) {
		// A stale cookie is an anonymous caller, not a failure.
		s.api.ClearSession()
		return nil
	}
	return err
}

// Signup registers an account and signs it in. Server messages are
// published to the error list on failure.
func (s *Session) Signup(ctx context.Context, in RegisterInput) error {
	user, err := s.api.Register(ctx, in)
	if err != nil {
		s.publishErrors(err)
		return err
	}
	s.signedIn(user)
	return nil
}

// Signin opens a session. Server messages are published to the error
// list on failure.
func (s *Session) Signin(ctx context.Context, email, password string) error {
	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.publishErrors(err)
		return err
	}
	s.signedIn(user)
	return nil
}

// Logout ends the session on the server and always clears local state.
func (s *Session) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	s.api.ClearSession()
	s.update(func(st *State) {
		st.User = nil
		st.Authenticated = false
		st.Loading = false
	})
	return err
}

// Close stops the pending error-clear timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errorTimer != nil {
		s.errorTimer.Stop()
		s.errorTimer = nil
	}
}

func (s *Session) signedIn(user *model.PublicUser) {
	s.update(func(st *State) {
		st.User = user
		st.Authenticated = true
		st.Loading = false
		st.Errors = nil
	})
}

// publishErrors replaces the error list and schedules it to clear.
// A newer error restarts the delay.
func (s *Session) publishErrors(err error) {
	messages := errorMessages(err)

	s.mu.Lock()
	s.state.Errors = messages
	s.errorGen++
	gen := s.errorGen
	if s.errorTimer != nil {
		s.errorTimer.Stop()
	}
	s.errorTimer = time.AfterFunc(s.errorTTL, func() { s.clearErrors(gen) })
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *Session) clearErrors(gen uint64) {
	s.mu.Lock()
	if gen != s.errorGen || len(s.state.Errors) == 0 {
		s.mu.Unlock()
		return
	}
	s.state.Errors = nil
	s.errorTimer = nil
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *Session) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, snap)
}

func (s *Session) snapshotLocked() State {
	snap := s.state
	if s.state.User != nil {
		u := *s.state.User
		snap.User = &u
	}
	if s.state.Errors != nil {
		snap.Errors = append([]string(nil), s.state.Errors...)
	}
	return snap
}

func (s *Session) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []Listener, snap State) {
	for _, fn := range listeners {
		fn(snap)
	}
}

func errorMessages(err error) []string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Messages) > 0 {
		return append([]string(nil), apiErr.Messages...)
	}
	return []string{err.Error()}
}
