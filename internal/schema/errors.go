package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Problem is one field-level validation failure.
type Problem struct {
	Field   string
	Message string
}

// ValidationError reports that a schema-kind record's fields failed the
// schema's own rules. It lists every problem found, not just the first.
type ValidationError struct {
	Type     string
	Problems []Problem
}

// Add records a problem.
func (e *ValidationError) Add(field, message string) {
	e.Problems = append(e.Problems, Problem{Field: field, Message: message})
}

// HasProblems reports whether any problem was recorded.
func (e *ValidationError) HasProblems() bool {
	return len(e.Problems) > 0
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		if p.Field == "" {
			parts[i] = p.Message
			continue
		}
		parts[i] = fmt.Sprintf("%s: %s", p.Field, p.Message)
	}
	return fmt.Sprintf("schema validation failed for %s: %s", e.Type, strings.Join(parts, "; "))
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
