package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*model.User
	lookErr error
	// createErr, when set, is returned by CreateUser instead of storing.
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*model.User)}
}

func (m *memUsers) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookErr != nil {
		return nil, m.lookErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookErr != nil {
		return nil, m.lookErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newMemDenylist() *memDenylist {
	return &memDenylist{revoked: make(map[string]time.Duration)}
}

func (d *memDenylist) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if ttl > 0 {
		d.revoked[tokenID] = ttl
	}
	return nil
}

func (d *memDenylist) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[tokenID]
	return ok, nil
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
	err   error
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: make(map[string]*model.Task)}
}

func (m *memTasks) CreateTask(_ context.Context, task *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memTasks) ListTasksByOwner(_ context.Context, ownerID string) ([]*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*model.Task, 0)
	for _, t := range m.tasks {
		if t.OwnerID == ownerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memTasks) GetTask(_ context.Context, id, ownerID string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, repository.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTasks) UpdateTask(_ context.Context, task *model.Task) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tasks[task.ID]
	if !ok || t.OwnerID != task.OwnerID {
		return nil, repository.ErrTaskNotFound
	}
	t.Title = task.Title
	t.Description = task.Description
	t.UpdatedAt = task.UpdatedAt
	cp := *t
	return &cp, nil
}

func (m *memTasks) DeleteTask(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	t, ok := m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return repository.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

var errBoom = errors.New("boom")
