package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// registerCustomValidators registers domain-specific validation functions
// with the validator instance for use in definition struct tags.
// registerCustomValidators returns an error if any registration fails.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	if err := v.RegisterValidation("identifier", validateIdentifier); err != nil {
		return fmt.Errorf("failed to register identifier validator: %w", err)
	}

	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	if err != nil || n != 3 || major < 0 || minor < 0 || patch < 0 {
		return false
	}
	// Sscanf tolerates trailing text; round-trip to reject it.
	return fmt.Sprintf("%d.%d.%d", major, minor, patch) == value
}

// validateIdentifier validates node and port identifiers: a letter
// followed by letters, digits, underscores, or hyphens. Identifiers
// never contain dots, which are reserved as the node/port separator
// in qualified binding keys.
func validateIdentifier(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}

	for i, ch := range value {
		isLetter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
		if i == 0 {
			if !isLetter {
				return false
			}
			continue
		}
		isDigit := ch >= '0' && ch <= '9'
		if !isLetter && !isDigit && ch != '_' && ch != '-' {
			return false
		}
	}
	return true
}
