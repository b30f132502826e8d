package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	MaxIdentifierLength = 128
	MaxAttributeKey     = 100

	// SQL identifiers may be schema-qualified (schema.table)
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return IsIdentifier(fl.Field().String())
	})
}

// Struct validates a struct using its `validate` tags.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// IsIdentifier reports whether s is safe to splice into SQL as an identifier.
func IsIdentifier(s string) bool {
	return len(s) <= MaxIdentifierLength && identifierPattern.MatchString(s)
}

// ValidateIdentifier validates an SQL identifier
func ValidateIdentifier(s string) error {
	if s == "" {
		return errors.New("identifier cannot be empty")
	}
	if !IsIdentifier(s) {
		return fmt.Errorf("identifier %q is invalid (letters, digits and underscore, at most %d characters)", s, MaxIdentifierLength)
	}
	return nil
}

// ValidateAttributeKey validates a node attribute key
func ValidateAttributeKey(key string) error {
	if key == "" {
		return errors.New("attribute key cannot be empty")
	}
	if len(key) > MaxAttributeKey {
		return fmt.Errorf("attribute key '%s' exceeds maximum length of %d characters", key, MaxAttributeKey)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	errs := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s: field is required", field))
		case "min":
			errs = append(errs, fmt.Errorf("%s: must be at least %s", field, param))
		case "oneof":
			errs = append(errs, fmt.Errorf("%s: must be one of [%s], got %q", field, param, e.Value()))
		case "identifier":
			errs = append(errs, fmt.Errorf("%s: %q is not a valid identifier", field, e.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return errors.Join(errs...)
}
