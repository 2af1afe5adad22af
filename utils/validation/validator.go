package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/projenitor/projenitor-api/model"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance with the custom tags registered
func NewValidator() *Validator {
	v := validator.New()
	// location_level accepts country, division, district, upazila, village or home
	_ = v.RegisterValidation("location_level", func(fl validator.FieldLevel) bool {
		_, err := model.ParseLocationLevel(fl.Field().String())
		return err == nil
	})

	return &Validator{
		validate: v,
	}
}

// ValidateStruct validates a struct using struct tags. Field failures are
// reported as one readable message.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fields := FormatValidationErrors(err)
	if len(fields) == 0 {
		return err
	}
	messages := make([]string, 0, len(fields))
	for _, msg := range fields {
		messages = append(messages, msg)
	}
	sort.Strings(messages)

	tags := make(map[string]bool)
	for _, e := range err.(validator.ValidationErrors) {
		tags[e.Tag()] = true
	}
	return &FieldError{message: strings.Join(messages, "; "), tags: tags}
}

// FieldError is returned by ValidateStruct when one or more fields fail
type FieldError struct {
	message string
	tags    map[string]bool
}

func (e *FieldError) Error() string {
	return e.message
}

// FailedOn reports whether err is a FieldError with a field that failed tag
func FailedOn(err error, tag string) bool {
	var fieldErr *FieldError
	return errors.As(err, &fieldErr) && fieldErr.tags[tag]
}

// FormatValidationErrors converts validation errors to a user-friendly format
func FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			field := strings.ToLower(e.Field())
			switch e.Tag() {
			case "required":
				errors[field] = fmt.Sprintf("%s is required", e.Field())
			case "email":
				errors[field] = "Invalid email format"
			case "min":
				errors[field] = fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
			case "max":
				errors[field] = fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
			case "gte":
				errors[field] = fmt.Sprintf("%s must be greater than or equal to %s", e.Field(), e.Param())
			case "datetime":
				errors[field] = fmt.Sprintf("%s must be formatted as %s", e.Field(), e.Param())
			case "location_level":
				errors[field] = fmt.Sprintf("%s must be one of country, division, district, upazila, village, home", e.Field())
			default:
				errors[field] = fmt.Sprintf("%s is invalid", e.Field())
			}
		}
	}

	return errors
}

// SanitizeString removes potentially dangerous characters
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	// Trim whitespace
	s = strings.TrimSpace(s)
	return s
}
