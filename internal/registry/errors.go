package registry

import (
	"errors"
	"fmt"
)

// UnknownTypeError is returned when a record references a (name, namespace)
// pair that has not been registered in this process.
type UnknownTypeError struct {
	Name      string
	Namespace string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown record type %q in namespace %q", e.Name, e.Namespace)
}

// IsUnknownType returns true if err is or wraps an UnknownTypeError.
func IsUnknownType(err error) bool {
	var ute *UnknownTypeError
	return errors.As(err, &ute)
}
