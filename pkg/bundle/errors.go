package bundle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/otapublish/internal/schema"
)

// ValidationError reports malformed or unsupported export metadata.
// It is fatal and never retried.
type ValidationError struct {
	Message string
	Fields  []schema.ValidationError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Path, f.Message))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// NotFoundError reports a missing export directory, metadata file or platform.
type NotFoundError struct {
	Message string
	Hint    string
}

func (e *NotFoundError) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return e.Message + ". " + e.Hint
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFoundError reports whether err wraps a NotFoundError
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
