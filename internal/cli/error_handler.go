package cli

import (
	stderrors "errors"
	"fmt"

	"todo-sync/internal/errors"
	"todo-sync/internal/validation"
)

// ErrorHandler provides centralized error handling for command handlers
type ErrorHandler struct{}

// NewErrorHandler creates a new error handler
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// Handle provides user-friendly error messages for validation and other errors
func (eh *ErrorHandler) Handle(operation string, err error) error {
	return fmt.Errorf("failed to %s: %s", operation, eh.message(err))
}

// HandleSimple provides user-friendly error messages without operation context
func (eh *ErrorHandler) HandleSimple(err error) error {
	return fmt.Errorf("%s", eh.message(err))
}

func (eh *ErrorHandler) message(err error) string {
	if err == nil {
		return "unknown error"
	}
	// Field-level detail wins over the wrapping AppError's summary.
	var validationErr *validation.ValidationError
	if stderrors.As(err, &validationErr) {
		return validationErr.GetUserFriendlyMessage()
	}
	return errors.GetUserMessage(err)
}

// IsNotFoundError checks if an error is a not found error
func (eh *ErrorHandler) IsNotFoundError(err error) bool {
	return errors.IsErrorType(err, errors.ErrorTypeNotFound)
}

// IsOfflineError checks if an error means the backend could not be reached
func (eh *ErrorHandler) IsOfflineError(err error) bool {
	return errors.IsErrorType(err, errors.ErrorTypeUnreachable) ||
		errors.IsErrorType(err, errors.ErrorTypeTimeout)
}
