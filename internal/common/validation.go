package common

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Kind    Kind
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Field, e.Value, e.Message)
}

// Validator collects rule failures for a request.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Err returns nil when valid, otherwise an AppError whose kind is taken from
// the first failing rule.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	kind := v.errors[0].Kind
	if kind == "" {
		kind = KindValidation
	}
	return NewAppError(kind, v.ErrorMessage(), ErrInvalidInput)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

// CountBetween requires a []string value with length in [min, max].
func CountBetween(min, max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		items, _ := value.([]string)
		if len(items) < min || len(items) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   len(items),
				Message: fmt.Sprintf("please upload between %d and %d files", min, max),
				Kind:    KindValidation,
			}
		}
		return nil
	}
}

// EachAllowed requires every string in a []string value to pass allowed.
// allowedList is only used to render the message.
func EachAllowed(allowed func(string) bool, allowedList []string) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		items, _ := value.([]string)
		for _, item := range items {
			if !allowed(item) {
				list := append([]string(nil), allowedList...)
				sort.Strings(list)
				return &ValidationError{
					Field:   fieldName,
					Value:   fmt.Sprintf("%q", item),
					Message: "unsupported file type, allowed: " + strings.Join(list, ", "),
					Kind:    KindUnsupportedFormat,
				}
			}
		}
		return nil
	}
}
