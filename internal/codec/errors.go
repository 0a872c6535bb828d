package codec

import (
	"errors"
	"fmt"
	"reflect"
)

// UnsupportedTypeError is returned by ToNode for a value with no
// representable kind.
type UnsupportedTypeError struct {
	// Type is the offending Go type.
	Type reflect.Type

	// Reason says why the value was rejected, when more can be said than
	// the type alone.
	Reason string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported type %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("unsupported type %s", e.Type)
}

// CyclicValueError is returned by ToNode when a value refers back to itself
// or nests deeper than the codec's maximum depth.
type CyclicValueError struct {
	// Type is the type of the value at which encoding stopped.
	Type reflect.Type

	// Depth is the nesting depth at which encoding stopped.
	Depth int

	// MaxDepth is set when the depth limit was hit rather than a revisited
	// reference.
	MaxDepth int
}

// Error implements the error interface.
func (e *CyclicValueError) Error() string {
	if e.MaxDepth > 0 {
		return fmt.Sprintf("cyclic value: nesting exceeds max depth %d at %s", e.MaxDepth, e.Type)
	}
	return fmt.Sprintf("cyclic value: %s refers to itself at depth %d", e.Type, e.Depth)
}

// IsUnsupportedType returns true if err is or wraps an UnsupportedTypeError.
func IsUnsupportedType(err error) bool {
	var ute *UnsupportedTypeError
	return errors.As(err, &ute)
}

// IsCyclicValue returns true if err is or wraps a CyclicValueError.
func IsCyclicValue(err error) bool {
	var cve *CyclicValueError
	return errors.As(err, &cve)
}
