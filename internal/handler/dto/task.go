package dto

import (
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

// TaskRequest represents the request body for creating or replacing a task.
type TaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// ValidationMessages names the client message for each failed rule.
func (TaskRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"title.required":       "Title is required",
		"description.required": "Description is required",
	}
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToTaskResponse converts a Task model to TaskResponse DTO.
func ToTaskResponse(task *model.Task) *TaskResponse {
	return &TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		OwnerID:     task.OwnerID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskListResponse converts a slice of Task models. The result is never nil
// so an empty list encodes as [].
func ToTaskListResponse(tasks []*model.Task) []TaskResponse {
	responses := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = *ToTaskResponse(task)
	}
	return responses
}
