package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/go-playground/validator/v10"
)

// MaxEntityNameLength bounds classification and tag names
const MaxEntityNameLength = 128

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums and names
	if err := Validate.RegisterValidation("provider_type", validateProviderType); err != nil {
		panic(fmt.Sprintf("failed to register provider_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("thread_type", validateThreadType); err != nil {
		panic(fmt.Sprintf("failed to register thread_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("entity_name", validateEntityName); err != nil {
		panic(fmt.Sprintf("failed to register entity_name validator: %v", err))
	}
}

func validateProviderType(fl validator.FieldLevel) bool {
	return ValidateProviderType(fl.Field().String()) == nil
}

func validateThreadType(fl validator.FieldLevel) bool {
	return ValidateThreadType(fl.Field().String()) == nil
}

func validateEntityName(fl validator.FieldLevel) bool {
	return ValidateEntityName(fl.Field().String()) == nil
}

// ValidateProviderType validates a ProviderType string value
func ValidateProviderType(value string) error {
	switch models.ProviderType(value) {
	case models.ProviderSystem, models.ProviderUser:
		return nil
	default:
		return fmt.Errorf("invalid provider: %s (must be 'system' or 'user')", value)
	}
}

// ValidateThreadType validates a ThreadType string value
func ValidateThreadType(value string) error {
	switch models.ThreadType(value) {
	case models.ThreadConversation, models.ThreadTask, models.ThreadAnnouncement:
		return nil
	default:
		return fmt.Errorf("invalid thread type: %s (must be 'Conversation', 'Task', or 'Announcement')", value)
	}
}

// ValidateEntityName checks a classification or tag name. Names become part of
// fully qualified names and entity links, so the separators those use are rejected.
func ValidateEntityName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("name cannot start or end with whitespace")
	}
	if utf8.RuneCountInString(name) > MaxEntityNameLength {
		return fmt.Errorf("name cannot be longer than %d characters", MaxEntityNameLength)
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("name cannot contain '.'")
	}
	if strings.Contains(name, "::") || strings.ContainsAny(name, "<>") {
		return fmt.Errorf("name cannot contain '::', '<' or '>'")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name cannot contain control characters")
		}
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}
