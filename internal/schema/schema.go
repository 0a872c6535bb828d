package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Marker is implemented by struct types that the encoder should treat as
// schema-kind records without an explicit registration.
type Marker interface {
	KVSchema()
}

// Constrained is implemented by schema types that carry CUE constraints.
// The returned source is unified with the record's field map after tag
// validation, e.g. `qty: >=1 & <=100`.
type Constrained interface {
	KVConstraints() string
}

var (
	markerType      = reflect.TypeOf((*Marker)(nil)).Elem()
	constrainedType = reflect.TypeOf((*Constrained)(nil)).Elem()
)

// IsMarked reports whether t or *t implements Marker.
func IsMarked(t reflect.Type) bool {
	t = indirect(t)
	return t.Implements(markerType) || reflect.PointerTo(t).Implements(markerType)
}

// Field describes one exported struct field.
type Field struct {
	Name       string // wire name
	GoName     string
	Index      int
	Type       reflect.Type
	Required   bool
	Default    string
	HasDefault bool
}

// Schema is the field layout of a struct type.
type Schema struct {
	Type        reflect.Type
	Fields      []Field
	byName      map[string]int
	constraints string
}

var cache = xsync.NewMapOf[reflect.Type, *Schema]()

// Of returns the schema of t, which must be a struct or pointer to struct.
// Schemas are computed once per type and cached.
func Of(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("schema: nil type")
	}
	t = indirect(t)
	if s, ok := cache.Load(t); ok {
		return s, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct", t)
	}

	s := &Schema{Type: t, byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, skip := wireName(sf)
		if skip {
			continue
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("schema: %s has two fields named %q", t, name)
		}
		def, hasDef := sf.Tag.Lookup("default")
		s.byName[name] = len(s.Fields)
		s.Fields = append(s.Fields, Field{
			Name:       name,
			GoName:     sf.Name,
			Index:      i,
			Type:       sf.Type,
			Required:   hasRule(sf.Tag.Get("validate"), "required"),
			Default:    def,
			HasDefault: hasDef,
		})
	}

	if reflect.PointerTo(t).Implements(constrainedType) {
		src := reflect.New(t).Interface().(Constrained).KVConstraints()
		if err := compileConstraints(src); err != nil {
			return nil, fmt.Errorf("schema: %s constraints: %w", t, err)
		}
		s.constraints = src
	}

	actual, _ := cache.LoadOrStore(t, s)
	return actual, nil
}

// Field returns the field with the given wire name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Flatten returns the wire-named field values of v, which must be of the
// schema's type or a pointer to it.
func (s *Schema) Flatten(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("schema: flatten nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Type() != s.Type {
		return nil, fmt.Errorf("schema: flatten %s with schema of %s", rv.Type(), s.Type)
	}
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = rv.Field(f.Index).Interface()
	}
	return out, nil
}

// wireName resolves the wire name of a field: kv tag, then json tag, then
// the Go name. A "-" name skips the field.
func wireName(sf reflect.StructField) (string, bool) {
	for _, key := range []string{"kv", "json"} {
		tag, ok := sf.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", true
		}
		if name != "" {
			return name, false
		}
	}
	return sf.Name, false
}

func hasRule(tag, rule string) bool {
	for _, part := range strings.Split(tag, ",") {
		if part == rule {
			return true
		}
	}
	return false
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
