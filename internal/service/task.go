package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// TaskStore persists tasks. Every lookup is scoped to an owner.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	ListTasksByOwner(ctx context.Context, ownerID string) ([]*model.Task, error)
	GetTask(ctx context.Context, id, ownerID string) (*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	DeleteTask(ctx context.Context, id, ownerID string) error
}

// TaskService handles task business logic for the calling user.
type TaskService struct {
	store   TaskStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateTaskInput defines input for creating a task.
type CreateTaskInput struct {
	OwnerID     string
	Title       string
	Description string
}

// UpdateTaskInput defines input for updating a task.
type UpdateTaskInput struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
}

// Create stores a new task owned by the caller.
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*model.Task, error) {
	if input.OwnerID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, ErrInvalidInput
	}

	now := s.now().UTC()
	task := &model.Task{
		ID:          ulid.Make().String(),
		Title:       input.Title,
		Description: input.Description,
		OwnerID:     input.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.metrics.IncTaskCreated()
	return task, nil
}

// List returns the caller's tasks, newest first.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]*model.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	tasks, err := s.store.ListTasksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return tasks, nil
}

// Get returns one of the caller's tasks.
func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*model.Task, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	task, err := s.store.GetTask(ctx, id, ownerID)
	if err != nil {
		return nil, mapTaskError(err)
	}

	// The store scopes by owner; this guards stores that do not.
	if !task.OwnedBy(ownerID) {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Update replaces title and description of one of the caller's tasks.
func (s *TaskService) Update(ctx context.Context, input UpdateTaskInput) (*model.Task, error) {
	if input.OwnerID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, ErrInvalidInput
	}

	task, err := s.store.UpdateTask(ctx, &model.Task{
		ID:          input.ID,
		OwnerID:     input.OwnerID,
		Title:       input.Title,
		Description: input.Description,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, mapTaskError(err)
	}

	s.metrics.IncTaskUpdated()
	return task, nil
}

// Delete removes one of the caller's tasks.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}

	if err := s.store.DeleteTask(ctx, id, ownerID); err != nil {
		return mapTaskError(err)
	}

	s.metrics.IncTaskDeleted()
	return nil
}

func mapTaskError(err error) error {
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
