// Package memory is an in-process user, task and session denylist store.
// It backs handler and contract tests that run without Postgres or Redis.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// Store keeps users, tasks and revoked session ids in maps.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*model.User
	byEmail map[string]string
	tasks   map[string]*model.Task
	revoked map[string]time.Time
	now     func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		tasks:   make(map[string]*model.Task),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// CreateUser inserts a user, enforcing unique emails like the users index.
func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return repository.ErrEmailExists
	}

	cp := *user
	s.users[user.ID] = &cp
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetUserByID returns a copy of the user with the given id.
func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// GetUserByEmail returns a copy of the user with the given email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// CreateTask inserts a task.
func (s *Store) CreateTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

// ListTasksByOwner returns the owner's tasks, newest first.
func (s *Store) ListTasksByOwner(_ context.Context, ownerID string) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*model.Task, 0)
	for _, task := range s.tasks {
		if task.OwnerID == ownerID {
			cp := *task
			tasks = append(tasks, &cp)
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// GetTask returns one of the owner's tasks.
func (s *Store) GetTask(_ context.Context, id, ownerID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, repository.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

// UpdateTask replaces title and description of one of the owner's tasks.
func (s *Store) UpdateTask(_ context.Context, task *model.Task) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok || existing.OwnerID != task.OwnerID {
		return nil, repository.ErrTaskNotFound
	}

	existing.Title = task.Title
	existing.Description = task.Description
	existing.UpdatedAt = task.UpdatedAt

	cp := *existing
	return &cp, nil
}

// DeleteTask removes one of the owner's tasks.
func (s *Store) DeleteTask(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return repository.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// RevokeToken records a session id until ttl passes.
func (s *Store) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[tokenID] = s.now().Add(ttl)
	return nil
}

// IsTokenRevoked reports whether a session id is still denylisted.
func (s *Store) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, ok := s.revoked[tokenID]
	return ok && s.now().Before(until), nil
}
