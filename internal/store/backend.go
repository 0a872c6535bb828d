package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("store: closed")

// Backend is a flat key/value store of opaque payloads.
type Backend interface {
	// Get returns the payload stored under key. The boolean is false when
	// the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores payload under key, replacing any previous payload.
	Set(ctx context.Context, key string, payload []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every key starting with prefix, in binary order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend's resources.
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*Memory)(nil)
)
