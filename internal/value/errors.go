package value

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is wrapped by every error caused by corrupt input:
// bad JSON, unknown tags, wrong field shapes, bad hex, bad timestamps.
// Callers test for it with errors.Is.
var ErrMalformedPayload = errors.New("malformed payload")

// MalformedBytesError reports a bytes node whose hex text cannot be decoded.
type MalformedBytesError struct {
	Text   string
	Reason string
}

func (e *MalformedBytesError) Error() string {
	return fmt.Sprintf("malformed bytes %q: %s", truncate(e.Text, 32), e.Reason)
}

// Unwrap makes MalformedBytesError match ErrMalformedPayload.
func (e *MalformedBytesError) Unwrap() error {
	return ErrMalformedPayload
}

// malformedf builds an error wrapping ErrMalformedPayload.
func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
