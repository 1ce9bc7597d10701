// Package remote defines the backend contracts the sync engine depends on and
// the JSON wire format shared by the HTTP client and the backend.
package remote

import (
	"context"
	"time"

	"todo-sync/internal/domain"
	apperrors "todo-sync/internal/errors"
)

// TaskStore is the authoritative task backend
type TaskStore interface {
	// ListByOwner returns the user's tasks, newest first
	ListByOwner(ctx context.Context, userID string) ([]domain.Task, error)
	// Create stores a new task and returns the backend-issued ID
	Create(ctx context.Context, task domain.Task) (string, error)
	Update(ctx context.Context, id string, update domain.TaskUpdate) error
	Delete(ctx context.Context, id string) error
}

// DocumentStore holds attachment blobs under owner-scoped keys
type DocumentStore interface {
	// Upload stores data under key, replacing any previous blob with that key
	Upload(ctx context.Context, data []byte, filename, key string) (domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// IsUnreachable reports that the backend could not be contacted. A request
// that timed out never got an answer, so it counts too.
func IsUnreachable(err error) bool {
	return apperrors.IsErrorType(err, apperrors.ErrorTypeUnreachable) ||
		apperrors.IsErrorType(err, apperrors.ErrorTypeTimeout)
}

// IsRejected reports that the backend answered and refused the operation
func IsRejected(err error) bool {
	return apperrors.IsErrorType(err, apperrors.ErrorTypeRejected)
}

// IsNotFound reports that the backend has no such record
func IsNotFound(err error) bool {
	return apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) || apperrors.StatusOf(err) == 404
}

// Error codes used in ErrorBody
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeConflict        = "CONFLICT"
	CodeTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ErrorBody is the body of every error response: {"error": {"code", "message"}}
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a description
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SignupRequest creates an account
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

// CreateTaskRequest is the body of POST /api/v1/tasks. The owner is taken
// from the token, never from the body.
type CreateTaskRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Completed   bool             `json:"completed"`
	CreatedAt   time.Time        `json:"createdAt"`
	Document    *domain.Document `json:"document,omitempty"`
}

// TaskListResponse is the body of GET /api/v1/tasks
type TaskListResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

// NewCreateTaskRequest builds the wire form of a new task
func NewCreateTaskRequest(task domain.Task) CreateTaskRequest {
	return CreateTaskRequest{
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		Document:    task.Document,
	}
}
