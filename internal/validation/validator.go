package validation

import (
	"net/mail"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"todo-sync/internal/config"
)

// Validator provides common validation utilities
type Validator struct {
	config *config.Config
}

// NewValidator creates a new validator instance using default limits
func NewValidator() *Validator {
	return &Validator{config: nil}
}

// NewValidatorWithConfig creates a new validator instance with configuration
func NewValidatorWithConfig(cfg *config.Config) *Validator {
	return &Validator{config: cfg}
}

// IsNonEmptyString checks if a string is not empty after trimming whitespace
func (v *Validator) IsNonEmptyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidStringLength checks if the trimmed rune count is within [min, max]
func (v *Validator) IsValidStringLength(s string, min, max int) bool {
	length := utf8.RuneCountInString(strings.TrimSpace(s))
	return length >= min && length <= max
}

// IsValidTitleLength checks a task title against the configured limits
func (v *Validator) IsValidTitleLength(title string) bool {
	return v.IsValidStringLength(title, v.TitleMinLength(), v.TitleMaxLength())
}

// IsValidDescriptionLength checks a description against the configured limit
func (v *Validator) IsValidDescriptionLength(description string) bool {
	return utf8.RuneCountInString(description) <= v.DescriptionMaxLength()
}

// HasControlCharacters reports newlines, tabs and other control runes
func (v *Validator) HasControlCharacters(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// IsValidTaskID checks that an ID is present and printable
func (v *Validator) IsValidTaskID(id string) bool {
	return v.IsNonEmptyString(id) && !v.HasControlCharacters(id) && !strings.ContainsAny(id, "/ ")
}

// IsValidEmail checks for a bare address such as ada@example.com
func (v *Validator) IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}

// IsReadableFile checks that path names an existing regular file
func (v *Validator) IsReadableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// TrimAndValidateString trims whitespace and returns the cleaned string
func (v *Validator) TrimAndValidateString(s string) string {
	return strings.TrimSpace(s)
}

// TitleMinLength returns the configured minimum title length or default
func (v *Validator) TitleMinLength() int {
	if v.config != nil {
		return v.config.Validation.TitleMinLength
	}
	return 3
}

// TitleMaxLength returns the configured maximum title length or default
func (v *Validator) TitleMaxLength() int {
	if v.config != nil {
		return v.config.Validation.TitleMaxLength
	}
	return 50
}

// DescriptionMaxLength returns the configured description limit or default
func (v *Validator) DescriptionMaxLength() int {
	if v.config != nil {
		return v.config.Validation.DescriptionMaxLength
	}
	return 1000
}
