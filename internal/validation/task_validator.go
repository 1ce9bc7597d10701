package validation

import (
	"todo-sync/internal/config"
	"todo-sync/internal/domain"
)

// TaskValidator provides validation for task input at the UI boundary
type TaskValidator struct {
	validator *Validator
}

// NewTaskValidator creates a new task validator with default limits
func NewTaskValidator() *TaskValidator {
	return &TaskValidator{
		validator: NewValidator(),
	}
}

// NewTaskValidatorWithConfig creates a task validator using configured limits
func NewTaskValidatorWithConfig(cfg *config.Config) *TaskValidator {
	return &TaskValidator{
		validator: NewValidatorWithConfig(cfg),
	}
}

// ValidateTitle validates a task title for creation or update
func (tv *TaskValidator) ValidateTitle(title string) error {
	validationError := NewValidationError()

	trimmed := tv.validator.TrimAndValidateString(title)
	if !tv.validator.IsNonEmptyString(trimmed) {
		validationError.AddRequiredError("title")
		return validationError
	}

	if !tv.validator.IsValidTitleLength(trimmed) {
		validationError.AddInvalidLengthError("title", trimmed,
			tv.validator.TitleMinLength(), tv.validator.TitleMaxLength())
	}

	if tv.validator.HasControlCharacters(trimmed) {
		validationError.AddInvalidCharacterError("title", trimmed)
	}

	return validationError.OrNil()
}

// ValidateDescription validates an optional description
func (tv *TaskValidator) ValidateDescription(description string) error {
	validationError := NewValidationError()
	if !tv.validator.IsValidDescriptionLength(description) {
		validationError.AddInvalidLengthError("description", len(description), 0, tv.validator.DescriptionMaxLength())
	}
	return validationError.OrNil()
}

// ValidateDocumentPath validates an attachment path when one is given
func (tv *TaskValidator) ValidateDocumentPath(path string) error {
	if path == "" {
		return nil
	}
	validationError := NewValidationError()
	if !tv.validator.IsReadableFile(path) {
		validationError.AddInvalidValueError("document", path, "file does not exist or is not a regular file")
	}
	return validationError.OrNil()
}

// ValidateTaskID validates a task identifier given on input
func (tv *TaskValidator) ValidateTaskID(id string) error {
	if !tv.validator.IsValidTaskID(id) {
		validationError := NewValidationError()
		validationError.AddInvalidValueError("task_id", id, "must be a non-empty identifier")
		return validationError
	}
	return nil
}

// ValidateTaskForCreation validates the inputs of an add operation
func (tv *TaskValidator) ValidateTaskForCreation(title, documentPath string) error {
	validationError := NewValidationError()
	validationError.Merge(tv.ValidateTitle(title))
	validationError.Merge(tv.ValidateDocumentPath(documentPath))
	return validationError.OrNil()
}

// ValidateTaskForUpdate validates the inputs of an update operation
func (tv *TaskValidator) ValidateTaskForUpdate(id string, update domain.TaskUpdate, documentPath string) error {
	validationError := NewValidationError()
	validationError.Merge(tv.ValidateTaskID(id))

	if update.IsEmpty() && documentPath == "" {
		validationError.AddRequiredError("update")
	}
	if update.Title != nil {
		validationError.Merge(tv.ValidateTitle(*update.Title))
	}
	if update.Description != nil {
		validationError.Merge(tv.ValidateDescription(*update.Description))
	}
	validationError.Merge(tv.ValidateDocumentPath(documentPath))

	return validationError.OrNil()
}

// GetValidTitle returns a cleaned title if valid
func (tv *TaskValidator) GetValidTitle(title string) (string, error) {
	if err := tv.ValidateTitle(title); err != nil {
		return "", err
	}
	return tv.validator.TrimAndValidateString(title), nil
}
