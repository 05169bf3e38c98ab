package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/estatetools/opsdash/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("checkbox_name", validateCheckboxName); err != nil {
		panic(fmt.Sprintf("failed to register checkbox_name validator: %v", err))
	}
	if err := Validate.RegisterValidation("iso_date", validateISODate); err != nil {
		panic(fmt.Sprintf("failed to register iso_date validator: %v", err))
	}
}

// validateCheckboxName validates that a string names one of the four task checkboxes
func validateCheckboxName(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, name := range models.CheckboxNames {
		if value == name {
			return true
		}
	}
	return false
}

// validateISODate validates that a string parses as a YYYY-MM-DD date; empty is allowed
func validateISODate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := models.ParseDate(value)
	return err == nil
}

// ValidateCheckboxName validates a checkbox name string value
func ValidateCheckboxName(value string) error {
	for _, name := range models.CheckboxNames {
		if value == name {
			return nil
		}
	}
	return fmt.Errorf("invalid checkbox name: %s (must be one of %s)", value, strings.Join(models.CheckboxNames, ", "))
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
