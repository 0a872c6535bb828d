package store

import (
	"context"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Memory is an in-process backend. Payloads are copied on the way in and
// out, so callers may reuse their buffers.
type Memory struct {
	entries *xsync.MapOf[string, []byte]
	closed  atomic.Bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{entries: xsync.NewMapOf[string, []byte]()}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.check(ctx); err != nil {
		return nil, false, err
	}
	payload, ok := m.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(payload), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, payload []byte) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.entries.Store(key, stored)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.entries.Delete(key)
	return nil
}

func (m *Memory) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	var keys []string
	m.entries.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	return m.entries.Size()
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *Memory) check(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}
