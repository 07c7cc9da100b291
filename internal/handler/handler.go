// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/middleware"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Messages shared by several handlers.
const (
	MsgNotFound         = "Resource not found"
	MsgMethodNotAllowed = "Method not allowed"
	MsgUnauthorized     = "Unauthorized"
	MsgInternal         = "Internal server error"
)

// Handler serves the endpoints that need no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports the service name and version.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "taskdeck API",
		"version": Version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, MsgNotFound)
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError writes the {"message": [...]} error body.
func writeError(w http.ResponseWriter, status int, messages ...string) {
	middleware.WriteMessages(w, status, messages...)
}

// bindBody returns the body validated by middleware.ValidateBody, or decodes
// and validates it when the handler is mounted without that middleware.
func bindBody[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	if body, ok := middleware.BodyFromContext[T](r.Context()); ok {
		return body, true
	}

	body, messages, status := middleware.DecodeAndValidate[T](r)
	if messages != nil {
		writeError(w, status, messages...)
		return nil, false
	}
	return body, true
}
