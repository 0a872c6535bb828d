package codec

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/roach88/kvserde/internal/registry"
	"github.com/roach88/kvserde/internal/value"
)

var (
	timeType   = reflect.TypeOf(time.Time{})
	uuidType   = reflect.TypeOf(uuid.UUID{})
	bigIntType = reflect.TypeOf((*big.Int)(nil))
	tupleType  = reflect.TypeOf(Tuple(nil))
	setType    = reflect.TypeOf(Set(nil))
	mapType    = reflect.TypeOf(Map{})
	mapPtrType = reflect.TypeOf((*Map)(nil))
	emptyType  = reflect.TypeOf(struct{}{})
)

// visit identifies a reference on the current encoding path.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type encoder struct {
	c    *Codec
	seen map[visit]struct{}
}

func (e *encoder) encode(v any, depth int) (value.Node, error) {
	if depth > e.c.maxDepth {
		return nil, &CyclicValueError{Type: reflect.TypeOf(v), Depth: depth, MaxDepth: e.c.maxDepth}
	}

	// Unnamed built-ins cannot be records.
	switch v := v.(type) {
	case nil:
		return value.Null{}, nil
	case bool:
		return value.Bool(v), nil
	case int:
		return value.Int(v), nil
	case int64:
		return value.Int(v), nil
	case float64:
		return encodeFloat(reflect.TypeOf(v), v)
	case string:
		return encodeText(reflect.TypeOf(v), v)
	case []byte:
		if v == nil {
			return value.Null{}, nil
		}
		return value.Bytes(v), nil
	case time.Time:
		return encodeTime(v)
	case time.Duration:
		return value.Duration(v), nil
	case uuid.UUID:
		return value.UniqueID(v), nil
	case *big.Int:
		if v == nil {
			return value.Null{}, nil
		}
		return encodeBigInt(v), nil
	}

	rv := reflect.ValueOf(v)
	t := rv.Type()

	entry, ok, err := e.recordEntry(t)
	if err != nil {
		return nil, err
	}
	if ok {
		return e.encodeRecord(entry, rv, depth)
	}

	switch t {
	case tupleType:
		elems, err := e.encodeElems(rv, depth)
		return value.Tuple(elems), err
	case setType:
		elems, err := e.encodeElems(rv, depth)
		return value.Set(elems), err
	case mapType:
		m := rv.Interface().(Map)
		return e.encodeMap(&m, depth)
	case mapPtrType:
		if rv.IsNil() {
			return value.Null{}, nil
		}
		return e.encodeMap(rv.Interface().(*Map), depth)
	}

	switch t.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return value.BigInt{Int: new(big.Int).SetUint64(u)}, nil
		}
		return value.Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return encodeFloat(t, rv.Float())
	case reflect.String:
		return encodeText(t, rv.String())
	case reflect.Pointer:
		if rv.IsNil() {
			return value.Null{}, nil
		}
		if t == bigIntType {
			return encodeBigInt(rv.Interface().(*big.Int)), nil
		}
		leave, err := e.enter(rv, depth)
		if err != nil {
			return nil, err
		}
		defer leave()
		return e.encode(rv.Elem().Interface(), depth+1)
	case reflect.Array:
		elems, err := e.encodeElems(rv, depth)
		return value.Tuple(elems), err
	case reflect.Slice:
		if rv.IsNil() {
			return value.Null{}, nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return value.Bytes(rv.Bytes()), nil
		}
		leave, err := e.enter(rv, depth)
		if err != nil {
			return nil, err
		}
		defer leave()
		elems, err := e.encodeElems(rv, depth)
		return value.List(elems), err
	case reflect.Map:
		if rv.IsNil() {
			return value.Null{}, nil
		}
		leave, err := e.enter(rv, depth)
		if err != nil {
			return nil, err
		}
		defer leave()
		if t.Elem() == emptyType {
			return e.encodeMapSet(rv, depth)
		}
		return e.encodeGoMap(rv, depth)
	case reflect.Struct:
		if t.ConvertibleTo(timeType) {
			return encodeTime(rv.Convert(timeType).Interface().(time.Time))
		}
		return nil, &UnsupportedTypeError{Type: t, Reason: "struct is neither registered nor self-describing"}
	default:
		return nil, &UnsupportedTypeError{Type: t}
	}
}

// recordEntry finds the registry entry for t. An explicit registration of
// the pointer or the element type wins; otherwise the element type is
// described and registered on first sight.
func (e *encoder) recordEntry(t reflect.Type) (registry.Entry, bool, error) {
	reg := e.c.reg
	if entry, ok := reg.Lookup(t); ok {
		return entry, true, nil
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
		if entry, ok := reg.Lookup(base); ok {
			return entry, true, nil
		}
	}
	switch base.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.String,
		reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
	default:
		return registry.Entry{}, false, nil
	}
	// Unnamed and predeclared types, the types of this package and the
	// built-in named types are never records.
	if base.PkgPath() == "" || base.PkgPath() == mapType.PkgPath() || base == timeType || base == uuidType {
		return registry.Entry{}, false, nil
	}
	entry, ok, err := reg.Ensure(base)
	if err != nil {
		return registry.Entry{}, false, fmt.Errorf("register %s: %w", base, err)
	}
	return entry, ok, nil
}

func (e *encoder) encodeRecord(entry registry.Entry, rv reflect.Value, depth int) (value.Node, error) {
	if rv.Kind() == reflect.Pointer {
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return value.Null{}, nil
			}
			leave, err := e.enter(rv, depth)
			if err != nil {
				return nil, err
			}
			defer leave()
			rv = rv.Elem()
		}
	}
	fields, err := entry.ToRepresentation(rv.Interface())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Key, err)
	}
	rec := value.Record{
		Name:      entry.Name,
		Namespace: entry.Namespace,
		Fields:    make(map[string]value.Node, len(fields)),
	}
	for _, name := range value.SortedFieldNames(fields) {
		n, err := e.encode(fields[name], depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entry.Name, name, err)
		}
		rec.Fields[name] = n
	}
	return rec, nil
}

func (e *encoder) encodeElems(rv reflect.Value, depth int) ([]value.Node, error) {
	elems := make([]value.Node, rv.Len())
	for i := range elems {
		n, err := e.encode(rv.Index(i).Interface(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		elems[i] = n
	}
	return elems, nil
}

func (e *encoder) encodeMap(m *Map, depth int) (value.Node, error) {
	out := make(value.Map, 0, m.Len())
	for i, entry := range m.entries {
		k, err := e.encode(entry.Key, depth+1)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		v, err := e.encode(entry.Value, depth+1)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out = append(out, value.Pair{Key: k, Value: v})
	}
	return out, nil
}

// encodeGoMap writes the entries of a Go map ordered by the canonical text
// of their keys, so equal maps encode identically.
func (e *encoder) encodeGoMap(rv reflect.Value, depth int) (value.Node, error) {
	type keyed struct {
		text []byte
		pair value.Pair
	}
	pairs := make([]keyed, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := e.encode(iter.Key().Interface(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("key %v: %w", iter.Key(), err)
		}
		text, err := value.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("key %v: %w", iter.Key(), err)
		}
		v, err := e.encode(iter.Value().Interface(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", text, err)
		}
		pairs = append(pairs, keyed{text: text, pair: value.Pair{Key: k, Value: v}})
	}
	slices.SortFunc(pairs, func(a, b keyed) int { return bytes.Compare(a.text, b.text) })

	out := make(value.Map, len(pairs))
	for i, p := range pairs {
		out[i] = p.pair
	}
	return out, nil
}

func (e *encoder) encodeMapSet(rv reflect.Value, depth int) (value.Node, error) {
	elems := make(value.Set, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		n, err := e.encode(iter.Key().Interface(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("element %v: %w", iter.Key(), err)
		}
		elems = append(elems, n)
	}
	return elems, nil
}

// enter marks a reference as being on the current path. The returned
// function removes the mark.
func (e *encoder) enter(rv reflect.Value, depth int) (func(), error) {
	key := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return func() {}, nil
		}
		key.len = rv.Len()
	}
	if _, ok := e.seen[key]; ok {
		return nil, &CyclicValueError{Type: rv.Type(), Depth: depth}
	}
	e.seen[key] = struct{}{}
	return func() { delete(e.seen, key) }, nil
}

func encodeFloat(t reflect.Type, f float64) (value.Node, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &UnsupportedTypeError{Type: t, Reason: fmt.Sprintf("non-finite float %v", f)}
	}
	return value.Float(f), nil
}

func encodeText(t reflect.Type, s string) (value.Node, error) {
	if !utf8.ValidString(s) {
		return nil, &UnsupportedTypeError{Type: t, Reason: "string is not valid UTF-8"}
	}
	return value.Text(s), nil
}

func encodeTime(t time.Time) (value.Node, error) {
	if y := t.Year(); y < 0 || y > 9999 {
		return nil, &UnsupportedTypeError{Type: timeType, Reason: fmt.Sprintf("year %d outside 0000-9999", y)}
	}
	return value.Timestamp{Time: t}, nil
}

func encodeBigInt(b *big.Int) value.Node {
	if b.IsInt64() {
		return value.Int(b.Int64())
	}
	return value.BigInt{Int: new(big.Int).Set(b)}
}
