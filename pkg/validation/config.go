package validation

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps every error returned by ConfigValidator.Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigValidator collects problems in a named configuration so they can be
// reported together.
//
//	err := validation.NewConfigValidator("pipeline").
//		Required("destination", cfg.Destination).
//		RangeInt("workers", cfg.Workers, 1, 1024).
//		Validate()
type ConfigValidator struct {
	name   string
	errors []error
}

// NewConfigValidator starts a validator; name prefixes every reported field.
func NewConfigValidator(name string) *ConfigValidator {
	return &ConfigValidator{name: name}
}

func (cv *ConfigValidator) addf(field, format string, args ...any) {
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: "+format, append([]any{cv.name, field}, args...)...))
}

// Required rejects an empty string
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		cv.addf(field, "required field is empty")
	}
	return cv
}

// RangeInt rejects values outside [min, max]
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if value < min || value > max {
		cv.addf(field, "value %d is outside range [%d, %d]", value, min, max)
	}
	return cv
}

// OneOf rejects values not in allowed
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return cv
		}
	}
	cv.addf(field, "value %q must be one of %v", value, allowed)
	return cv
}

// Identifier rejects values that cannot be used as SQL identifiers
func (cv *ConfigValidator) Identifier(field, value string) *ConfigValidator {
	if err := ValidateIdentifier(value); err != nil {
		cv.addf(field, "%w", err)
	}
	return cv
}

// Custom records the error returned by fn, if any
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.addf(field, "%w", err)
	}
	return cv
}

// When runs validations only if condition holds
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// Validate returns nil, or every collected error joined under ErrInvalidConfig.
func (cv *ConfigValidator) Validate() error {
	if len(cv.errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(cv.errors...))
}

// DefaultOrInt substitutes def for zero or negative values.
func DefaultOrInt(value, def int) int {
	if value <= 0 {
		return def
	}
	return value
}
