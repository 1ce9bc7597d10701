package validation

import (
	"unicode/utf8"
)

// MinPasswordLength matches what the account backend accepts
const MinPasswordLength = 6

// AccountValidator validates signup and login input
type AccountValidator struct {
	validator *Validator
}

// NewAccountValidator creates a new account validator
func NewAccountValidator() *AccountValidator {
	return &AccountValidator{validator: NewValidator()}
}

// ValidateSignup validates a new account
func (av *AccountValidator) ValidateSignup(name, email, password string) error {
	validationError := NewValidationError()
	validationError.Merge(av.ValidateName(name))
	validationError.Merge(av.ValidateLogin(email, password))
	return validationError.OrNil()
}

// ValidateName validates a display name
func (av *AccountValidator) ValidateName(name string) error {
	validationError := NewValidationError()

	if !av.validator.IsNonEmptyString(name) {
		validationError.AddRequiredError("name")
	} else if !av.validator.IsValidStringLength(name, 1, 100) {
		validationError.AddInvalidLengthError("name", name, 1, 100)
	}

	return validationError.OrNil()
}

// ValidateLogin validates credentials before they are sent
func (av *AccountValidator) ValidateLogin(email, password string) error {
	validationError := NewValidationError()

	if !av.validator.IsNonEmptyString(email) {
		validationError.AddRequiredError("email")
	} else if !av.validator.IsValidEmail(email) {
		validationError.AddInvalidFormatError("email", email, "name@example.com")
	}

	if password == "" {
		validationError.AddRequiredError("password")
	} else if utf8.RuneCountInString(password) < MinPasswordLength {
		validationError.AddInvalidLengthError("password", nil, MinPasswordLength, 0)
	}

	return validationError.OrNil()
}
