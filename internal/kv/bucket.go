// Package kv is a typed key/value bucket: it encodes values with an
// envelope.Engine and stores the payloads in a store.Backend.
//
// Get treats every decode failure as absence and logs it; callers that need
// to tell the two apart use GetErr.
package kv

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/kvserde/internal/envelope"
	"github.com/roach88/kvserde/internal/store"
)

// Bucket namespaces keys with a prefix inside a backend.
type Bucket struct {
	prefix  string
	engine  *envelope.Engine
	backend store.Backend
}

// NewBucket returns a bucket whose keys are stored as name + ":" + key.
// An empty name stores keys unprefixed.
func NewBucket(name string, engine *envelope.Engine, backend store.Backend) *Bucket {
	prefix := ""
	if name != "" {
		prefix = name + ":"
	}
	return &Bucket{prefix: prefix, engine: engine, backend: backend}
}

func (b *Bucket) rawKey(key string) string {
	return b.prefix + key
}

// Put encodes v and stores it under key.
func (b *Bucket) Put(ctx context.Context, key string, v any) error {
	payload, err := b.engine.Encode(v)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	if err := b.backend.Set(ctx, b.rawKey(key), payload); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key. It reports false when the key is
// absent or its payload cannot be decoded.
func (b *Bucket) Get(ctx context.Context, key string) (any, bool) {
	v, ok, err := b.GetErr(ctx, key)
	if err != nil {
		slog.Warn("treating undecodable entry as absent",
			"key", b.rawKey(key),
			"error", err)
		return nil, false
	}
	return v, ok
}

// GetErr is Get with failures reported.
func (b *Bucket) GetErr(ctx context.Context, key string) (any, bool, error) {
	payload, ok, err := b.backend.Get(ctx, b.rawKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	v, err := b.engine.Decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return v, true, nil
}

// Raw returns the stored payload under key without decoding it.
func (b *Bucket) Raw(ctx context.Context, key string) ([]byte, bool, error) {
	return b.backend.Get(ctx, b.rawKey(key))
}

// Delete removes key.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := b.backend.Delete(ctx, b.rawKey(key)); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys returns the bucket's keys, without the bucket prefix, in binary order.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	raw, err := b.backend.Keys(ctx, b.prefix)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = strings.TrimPrefix(k, b.prefix)
	}
	return keys, nil
}
