package registry

import (
	"fmt"
	"reflect"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kvserde/internal/schema"
)

// Kind distinguishes how a record type converts to and from its fields.
type Kind uint8

const (
	KindCustom Kind = iota + 1
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindCustom:
		return "custom"
	case KindSchema:
		return "schema"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Representer is implemented by custom-kind types.
type Representer interface {
	ToRepresentation() (map[string]any, error)
}

// Unrepresenter is implemented by the pointer of custom-kind types.
// FromRepresentation populates the receiver from a field map.
type Unrepresenter interface {
	FromRepresentation(fields map[string]any) error
}

// Namer lets a type choose its wire name and namespace. Without it, the Go
// type name and package path are used.
type Namer interface {
	TypeName() (name, namespace string)
}

var (
	representerType   = reflect.TypeOf((*Representer)(nil)).Elem()
	unrepresenterType = reflect.TypeOf((*Unrepresenter)(nil)).Elem()
	namerType         = reflect.TypeOf((*Namer)(nil)).Elem()
)

// Key identifies a record type on the wire.
type Key struct {
	Name      string
	Namespace string
}

// MakeKey builds a Key with both parts in Unicode NFC, so that canonically
// equivalent spellings of a name resolve to the same entry.
func MakeKey(name, namespace string) Key {
	return Key{Name: norm.NFC.String(name), Namespace: norm.NFC.String(namespace)}
}

func (k Key) String() string {
	return k.Namespace + "." + k.Name
}

// Entry is one registered record type. It doubles as the descriptor passed
// to Register.
type Entry struct {
	Key
	Kind Kind

	// Type is the Go type that decoding produces. It may be a pointer type.
	Type reflect.Type

	ToRepresentation   func(v any) (map[string]any, error)
	FromRepresentation func(fields map[string]any) (any, error)
}

// Named returns a copy of e registered under a different name and namespace.
func (e Entry) Named(name, namespace string) Entry {
	e.Key = MakeKey(name, namespace)
	return e
}

// Custom describes a custom-kind type T whose pointer implements
// Representer and Unrepresenter. Decoding produces T values.
//
//	reg.Register(registry.Custom[Point]())
func Custom[T any, PT interface {
	*T
	Representer
	Unrepresenter
}]() Entry {
	t := reflect.TypeOf((*T)(nil)).Elem()
	e, err := describeCustom(t)
	if err != nil {
		panic(err)
	}
	return e
}

// Schema describes a struct type T as a schema-kind record.
// It panics if T is not a valid schema; use SchemaOf for an error instead.
func Schema[T any]() Entry {
	e, err := SchemaOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		panic(err)
	}
	return e
}

// SchemaOf describes t (a struct or pointer to struct) as a schema-kind
// record. Decoding produces values of type t.
func SchemaOf(t reflect.Type) (Entry, error) {
	s, err := schema.Of(t)
	if err != nil {
		return Entry{}, err
	}
	name, namespace, err := typeName(t)
	if err != nil {
		return Entry{}, err
	}
	isPtr := t.Kind() == reflect.Pointer
	return Entry{
		Key:              MakeKey(name, namespace),
		Kind:             KindSchema,
		Type:             t,
		ToRepresentation: s.Flatten,
		FromRepresentation: func(fields map[string]any) (any, error) {
			v, err := s.Build(fields)
			if err != nil {
				return nil, err
			}
			if isPtr {
				return v, nil
			}
			return reflect.ValueOf(v).Elem().Interface(), nil
		},
	}, nil
}

// Describe builds an entry for t from its methods: schema kind when t is
// marked with schema.Marker, custom kind when its pointer implements
// Representer and Unrepresenter. It reports false for any other type.
func Describe(t reflect.Type) (Entry, bool, error) {
	base := indirect(t)
	if base.Name() == "" {
		return Entry{}, false, nil
	}
	if base.Kind() == reflect.Struct && schema.IsMarked(base) {
		e, err := SchemaOf(t)
		return e, err == nil, err
	}
	ptr := reflect.PointerTo(base)
	if ptr.Implements(representerType) && ptr.Implements(unrepresenterType) {
		e, err := describeCustom(t)
		return e, err == nil, err
	}
	return Entry{}, false, nil
}

func describeCustom(t reflect.Type) (Entry, error) {
	name, namespace, err := typeName(t)
	if err != nil {
		return Entry{}, err
	}
	base := indirect(t)
	isPtr := t.Kind() == reflect.Pointer
	return Entry{
		Key:  MakeKey(name, namespace),
		Kind: KindCustom,
		Type: t,
		ToRepresentation: func(v any) (map[string]any, error) {
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Pointer {
				p := reflect.New(rv.Type())
				p.Elem().Set(rv)
				rv = p
			}
			if rv.IsNil() {
				return nil, fmt.Errorf("nil %s", rv.Type())
			}
			return rv.Interface().(Representer).ToRepresentation()
		},
		FromRepresentation: func(fields map[string]any) (any, error) {
			p := reflect.New(base)
			if err := p.Interface().(Unrepresenter).FromRepresentation(fields); err != nil {
				return nil, err
			}
			if isPtr {
				return p.Interface(), nil
			}
			return p.Elem().Interface(), nil
		},
	}, nil
}

// typeName resolves the wire name of t through Namer, falling back to the
// Go type name and package path.
func typeName(t reflect.Type) (string, string, error) {
	base := indirect(t)
	p := reflect.New(base)
	if base.Implements(namerType) {
		name, ns := p.Elem().Interface().(Namer).TypeName()
		return name, ns, nil
	}
	if p.Type().Implements(namerType) {
		name, ns := p.Interface().(Namer).TypeName()
		return name, ns, nil
	}
	if base.Name() == "" {
		return "", "", fmt.Errorf("registry: anonymous type %s needs a Namer", base)
	}
	return base.Name(), base.PkgPath(), nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
