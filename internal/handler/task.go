package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/handler/dto"
	"github.com/taskdeck/taskdeck/internal/middleware"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/service"
)

// MsgTaskNotFound is returned when a task id does not resolve for the caller.
const MsgTaskNotFound = "Task not found"

// TaskService is the part of service.TaskService the handlers use.
type TaskService interface {
	Create(ctx context.Context, input service.CreateTaskInput) (*model.Task, error)
	List(ctx context.Context, ownerID string) ([]*model.Task, error)
	Get(ctx context.Context, ownerID, id string) (*model.Task, error)
	Update(ctx context.Context, input service.UpdateTaskInput) (*model.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// TaskHandler handles HTTP requests for task operations.
// Every route runs behind middleware.Auth.
type TaskHandler struct {
	svc    TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskListResponse(tasks))
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := bindBody[dto.TaskRequest](w, r)
	if !ok {
		return
	}

	task, err := h.svc.Create(r.Context(), service.CreateTaskInput{
		OwnerID:     auth.UserIDFromContext(r.Context()),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("task_created", "task_id", task.ID, "owner_id", task.OwnerID)

	writeJSON(w, http.StatusCreated, dto.ToTaskResponse(task))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// Update handles PUT /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := bindBody[dto.TaskRequest](w, r)
	if !ok {
		return
	}

	task, err := h.svc.Update(r.Context(), service.UpdateTaskInput{
		ID:          chi.URLParam(r, "id"),
		OwnerID:     auth.UserIDFromContext(r.Context()),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("task_updated", "task_id", task.ID)

	writeJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("task_deleted", "task_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *TaskHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, MsgTaskNotFound)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, MsgInvalidInput)
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, MsgUnauthorized)
	default:
		h.logger.Error("internal_error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, MsgInternal)
	}
}
