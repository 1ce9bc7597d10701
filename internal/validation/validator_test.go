package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todo-sync/internal/config"
)

func TestValidator_IsNonEmptyString(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Non-empty string", "hello", true},
		{"Empty string", "", false},
		{"Whitespace only", "   ", false},
		{"String with whitespace", "  hello  ", true},
		{"Tab and newline", "\t\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.IsNonEmptyString(tt.input)
			if result != tt.expected {
				t.Errorf("IsNonEmptyString(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestValidator_IsValidTitleLength(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Too short", "ab", false},
		{"Minimum", "abc", true},
		{"Padded short title", "  ab  ", false},
		{"Maximum", strings.Repeat("a", 50), true},
		{"Multibyte counts runes", "über-große Aufgabe", true},
		{"Too long", "This title is definitely going to be longer than fifty characters", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.IsValidTitleLength(tt.input)
			if result != tt.expected {
				t.Errorf("IsValidTitleLength(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestValidator_UsesConfiguredLimits(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Validation.TitleMinLength = 1
	cfg.Validation.TitleMaxLength = 5
	cfg.Validation.DescriptionMaxLength = 3
	validator := NewValidatorWithConfig(cfg)

	if !validator.IsValidTitleLength("a") {
		t.Error("IsValidTitleLength should accept titles at the configured minimum")
	}
	if validator.IsValidTitleLength("abcdef") {
		t.Error("IsValidTitleLength should reject titles over the configured maximum")
	}
	if validator.IsValidDescriptionLength("abcd") {
		t.Error("IsValidDescriptionLength should reject descriptions over the configured maximum")
	}
}

func TestValidator_HasControlCharacters(t *testing.T) {
	validator := NewValidator()

	if validator.HasControlCharacters("Buy milk!") {
		t.Error("plain text should not contain control characters")
	}
	if !validator.HasControlCharacters("Buy\nmilk") {
		t.Error("newline should be reported as a control character")
	}
}

func TestValidator_IsValidTaskID(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		input    string
		expected bool
	}{
		{"local_1718000000000", true},
		{"1b4e28ba-2fa1-11d2-883f-0016d3cca427", true},
		{"", false},
		{"has space", false},
		{"../escape", false},
	}

	for _, tt := range tests {
		if result := validator.IsValidTaskID(tt.input); result != tt.expected {
			t.Errorf("IsValidTaskID(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestValidator_IsValidEmail(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		input    string
		expected bool
	}{
		{"ada@example.com", true},
		{"Ada <ada@example.com>", false},
		{"ada@localhost", false},
		{"not-an-email", false},
	}

	for _, tt := range tests {
		if result := validator.IsValidEmail(tt.input); result != tt.expected {
			t.Errorf("IsValidEmail(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestValidator_IsReadableFile(t *testing.T) {
	validator := NewValidator()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}

	if !validator.IsReadableFile(path) {
		t.Error("IsReadableFile should accept an existing file")
	}
	if validator.IsReadableFile(dir) {
		t.Error("IsReadableFile should reject a directory")
	}
	if validator.IsReadableFile(filepath.Join(dir, "missing")) {
		t.Error("IsReadableFile should reject a missing file")
	}
}

func TestValidator_TrimAndValidateString(t *testing.T) {
	validator := NewValidator()

	if result := validator.TrimAndValidateString("  Buy milk \t"); result != "Buy milk" {
		t.Errorf("TrimAndValidateString() = %q, expected %q", result, "Buy milk")
	}
}
