// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// RegisterRequest represents the request body for creating an account.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=6,eqfield=Password"`
}

// ValidationMessages names the client message for each failed rule.
func (RegisterRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"username.required":        "Username is required",
		"username.min":             "Username must be at least 3 characters",
		"email.required":           "Please enter a valid email address",
		"email.email":              "Please enter a valid email address",
		"password.required":        "Password must be at least 6 characters",
		"password.min":             "Password must be at least 6 characters",
		"password.max":             "Password must be at most 72 characters",
		"confirmPassword.required": "Password must be at least 6 characters",
		"confirmPassword.min":      "Password must be at least 6 characters",
		"confirmPassword.eqfield":  "Passwords do not match",
	}
}

// LoginRequest represents the request body for opening a session.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ValidationMessages names the client message for each failed rule.
func (LoginRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"email.required":    "Please enter a valid email address",
		"email.email":       "Please enter a valid email address",
		"password.required": "Password must be at least 6 characters",
		"password.min":      "Password must be at least 6 characters",
		"password.max":      "Password must be at most 72 characters",
	}
}
