package client

import (
	"context"
	"sync"

	"github.com/taskdeck/taskdeck/internal/model"
)

// TasksAPI is the server surface the Tasks controller needs.
type TasksAPI interface {
	ListTasks(ctx context.Context) ([]*model.Task, error)
	CreateTask(ctx context.Context, in TaskInput) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, in TaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Tasks keeps the caller's task list in step with the server.
// Every method returns the server error instead of swallowing it.
type Tasks struct {
	api TasksAPI

	mu    sync.RWMutex
	tasks []*model.Task
}

// NewTasks creates a controller with an empty list.
func NewTasks(api TasksAPI) *Tasks {
	return &Tasks{api: api}
}

// List returns a copy of the cached tasks, newest first.
func (t *Tasks) List() []*model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*model.Task, len(t.tasks))
	for i, task := range t.tasks {
		cp := *task
		out[i] = &cp
	}
	return out
}

// Refresh replaces the cached list with the server's.
func (t *Tasks) Refresh(ctx context.Context) error {
	tasks, err := t.api.ListTasks(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.tasks = tasks
	t.mu.Unlock()
	return nil
}

// Create adds a task on the server and to the front of the list.
func (t *Tasks) Create(ctx context.Context, in TaskInput) (*model.Task, error) {
	task, err := t.api.CreateTask(ctx, in)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.tasks = append([]*model.Task{task}, t.tasks...)
	t.mu.Unlock()

	cp := *task
	return &cp, nil
}

// Get fetches one task from the server.
func (t *Tasks) Get(ctx context.Context, id string) (*model.Task, error) {
	return t.api.GetTask(ctx, id)
}

// Update replaces a task on the server and in the list.
func (t *Tasks) Update(ctx context.Context, id string, in TaskInput) (*model.Task, error) {
	task, err := t.api.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	for i, existing := range t.tasks {
		if existing.ID == id {
			t.tasks[i] = task
			break
		}
	}
	t.mu.Unlock()

	cp := *task
	return &cp, nil
}

// Delete removes a task on the server, then from the list.
func (t *Tasks) Delete(ctx context.Context, id string) error {
	if err := t.api.DeleteTask(ctx, id); err != nil {
		return err
	}

	t.mu.Lock()
	kept := t.tasks[:0:0]
	for _, task := range t.tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	t.tasks = kept
	t.mu.Unlock()
	return nil
}
