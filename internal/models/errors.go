package models

import (
	"strings"
)

// FieldError is a single violated invariant.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FullMessage renders the error the way it is shown to users,
// e.g. "End time must be after start time".
func (e FieldError) FullMessage() string {
	return humanize(e.Field) + " " + e.Message
}

// ValidationError is returned when a shift fails validation.
type ValidationError struct {
	Errors []FieldError
}

// Add appends a violation.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Messages returns full messages in the order they were added.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		out = append(out, fe.FullMessage())
	}
	return out
}

// Has reports whether any violation concerns field.
func (e *ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
