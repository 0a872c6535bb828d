package registry

import (
	"cmp"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// typeSlot caches the outcome of describing a Go type. A slot with ok false
// records that the type is not a record type.
type typeSlot struct {
	entry Entry
	ok    bool
}

// Registry resolves record keys to entries. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byKey  map[Key]Entry
	byType *xsync.MapOf[reflect.Type, typeSlot]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byKey:  make(map[Key]Entry),
		byType: xsync.NewMapOf[reflect.Type, typeSlot](),
	}
}

var defaultRegistry = New()

// Default returns the process-wide registry. It lives for the lifetime of
// the process and is never reset.
func Default() *Registry {
	return defaultRegistry
}

// Register adds e, replacing any entry with the same key.
func (r *Registry) Register(e Entry) {
	e.Key = MakeKey(e.Name, e.Namespace)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(e)
}

// RegisterMany registers each entry in order.
func (r *Registry) RegisterMany(entries ...Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		e.Key = MakeKey(e.Name, e.Namespace)
		r.put(e)
	}
}

// put stores e under its key. A Go type previously registered under the same
// key loses its record identity; it is cached as a non-record type so Ensure
// does not claim the key back. Callers hold mu.
func (r *Registry) put(e Entry) {
	if old, ok := r.byKey[e.Key]; ok && old.Type != nil && old.Type != e.Type {
		r.byType.Store(old.Type, typeSlot{})
	}
	r.byKey[e.Key] = e
	if e.Type != nil {
		r.byType.Store(e.Type, typeSlot{entry: e, ok: true})
	}
}

// Resolve returns the entry registered under name and namespace.
func (r *Registry) Resolve(name, namespace string) (Entry, error) {
	key := MakeKey(name, namespace)
	r.mu.RLock()
	e, ok := r.byKey[key]
	r.mu.RUnlock()
	if !ok {
		return Entry{}, &UnknownTypeError{Name: key.Name, Namespace: key.Namespace}
	}
	return e, nil
}

// Lookup returns the entry registered for the Go type t, if any.
func (r *Registry) Lookup(t reflect.Type) (Entry, bool) {
	slot, ok := r.byType.Load(t)
	return slot.entry, ok && slot.ok
}

// Ensure returns the entry for t, registering it first when t describes
// itself as a record type (see Describe). It reports false when t is not a
// record type; that outcome is cached too.
func (r *Registry) Ensure(t reflect.Type) (Entry, bool, error) {
	if slot, ok := r.byType.Load(t); ok {
		return slot.entry, slot.ok, nil
	}

	e, ok, err := Describe(t)
	if err != nil {
		return Entry{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.byType.Load(t); ok {
		return slot.entry, slot.ok, nil
	}
	if !ok {
		r.byType.Store(t, typeSlot{})
		return Entry{}, false, nil
	}
	r.put(e)
	slog.Debug("auto-registered record type",
		"name", e.Name,
		"namespace", e.Namespace,
		"kind", e.Kind.String(),
		"type", t.String())
	return e, true, nil
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// Entries returns a snapshot of all entries ordered by namespace, then name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.byKey))
	for _, e := range r.byKey {
		out = append(out, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
