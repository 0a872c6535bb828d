package codec

import (
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// Tuple is an ordered, fixed-arity collection.
type Tuple []any

// List is an ordered sequence. Plain slices encode the same way; List exists
// so that callers can build heterogeneous sequences explicitly.
type List []any

// Set is an unordered collection of distinct elements. Duplicates (by
// canonical encoding) are dropped on encode, and decoded sets come back in
// canonical order.
type Set []any

// NewSet returns a Set of elems.
func NewSet(elems ...any) Set {
	return Set(elems)
}

// Equaler is implemented by map keys that define their own equality.
type Equaler interface {
	Equal(other any) bool
}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   any
	Value any
}

// Map is an insertion-ordered association whose keys may be of any type,
// including slices, tuples and records. Keys are compared with their Equal
// method when they implement Equaler, and structurally otherwise.
//
// Keys made only of scalars, strings, arrays and structs of those are found
// through a hash index. Other keys are found by a linear scan over the
// entries that hold such keys.
type Map struct {
	entries []Entry
	pos     map[any]int // flat keys
	slow    []int       // positions of all other keys, ascending
}

// NewMap returns a Map holding entries. Later entries replace earlier ones
// with an equal key.
func NewMap(entries ...Entry) *Map {
	m := &Map{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

func (m *Map) index(key any) int {
	best := -1
	if flatKey(key) {
		if i, ok := m.pos[key]; ok {
			best = i
		}
	}
	for _, i := range m.slow {
		if best >= 0 && i > best {
			break
		}
		if keysEqual(m.entries[i].Key, key) {
			return i
		}
	}
	return best
}

// Set stores value under key, keeping the position of an existing equal key.
func (m *Map) Set(key, value any) {
	if i := m.index(key); i >= 0 {
		m.entries[i].Value = value
		return
	}
	m.entries = append(m.entries, Entry{Key: key, Value: value})
	m.track(key, len(m.entries)-1)
}

func (m *Map) track(key any, i int) {
	if !flatKey(key) {
		m.slow = append(m.slow, i)
		return
	}
	if m.pos == nil {
		m.pos = make(map[any]int)
	}
	m.pos[key] = i
}

// Get returns the value stored under key.
func (m *Map) Get(key any) (any, bool) {
	if m == nil {
		return nil, false
	}
	if i := m.index(key); i >= 0 {
		return m.entries[i].Value, true
	}
	return nil, false
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key any) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	m.pos, m.slow = nil, nil
	for j, e := range m.entries {
		m.track(e.Key, j)
	}
	return true
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns a copy of the entries in insertion order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []any {
	if m == nil {
		return nil
	}
	out := make([]any, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Key
	}
	return out
}

// GoMap converts m to a Go map. It fails when a key is not comparable, such
// as a Tuple or a []byte.
func (m *Map) GoMap() (map[any]any, error) {
	out := make(map[any]any, m.Len())
	for _, e := range m.Entries() {
		if e.Key != nil && !reflect.ValueOf(e.Key).Comparable() {
			return nil, fmt.Errorf("map key of type %T is not comparable", e.Key)
		}
		out[e.Key] = e.Value
	}
	return out, nil
}

var flatTypes = xsync.NewMapOf[reflect.Type, bool]()

// flatKey reports whether key can be compared with == in place of
// keysEqual: it is not an Equaler and its type holds no pointers,
// interfaces, slices, maps, funcs or channels.
func flatKey(key any) bool {
	if key == nil {
		return true
	}
	if _, ok := key.(Equaler); ok {
		return false
	}
	t := reflect.TypeOf(key)
	if flat, ok := flatTypes.Load(t); ok {
		return flat
	}
	flat := flatType(t)
	flatTypes.Store(t, flat)
	return flat
}

func flatType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return flatType(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !flatType(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func keysEqual(a, b any) bool {
	if eq, ok := a.(Equaler); ok {
		return eq.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}
