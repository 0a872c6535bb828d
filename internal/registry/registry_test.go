package registry

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvserde/internal/schema"
)

type point struct {
	X, Y float64
}

func (p point) ToRepresentation() (map[string]any, error) {
	return map[string]any{"x": p.X, "y": p.Y}, nil
}

func (p *point) FromRepresentation(fields map[string]any) error {
	x, okX := fields["x"].(float64)
	y, okY := fields["y"].(float64)
	if !okX || !okY {
		return fmt.Errorf("point: bad fields %v", fields)
	}
	p.X, p.Y = x, y
	return nil
}

func (point) TypeName() (string, string) { return "Point", "geo" }

type account struct {
	ID    string `kv:"id" validate:"required"`
	Label string `kv:"label" default:"main"`
}

func (account) KVSchema() {}

type plain struct{ A int }

func TestCustom(t *testing.T) {
	e := Custom[point]()
	assert.Equal(t, KindCustom, e.Kind)
	assert.Equal(t, Key{Name: "Point", Namespace: "geo"}, e.Key)
	assert.Equal(t, reflect.TypeOf(point{}), e.Type)

	fields, err := e.ToRepresentation(point{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0}, fields)

	fields, err = e.ToRepresentation(&point{3, 4})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 3.0, "y": 4.0}, fields)

	v, err := e.FromRepresentation(map[string]any{"x": 5.0, "y": 6.0})
	require.NoError(t, err)
	assert.Equal(t, point{5, 6}, v)
}

func TestSchemaOf(t *testing.T) {
	e := Schema[account]()
	assert.Equal(t, KindSchema, e.Kind)
	assert.Equal(t, "account", e.Name)
	assert.Equal(t, "github.com/roach88/kvserde/internal/registry", e.Namespace)

	fields, err := e.ToRepresentation(account{ID: "a1", Label: "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "a1", "label": "x"}, fields)

	v, err := e.FromRepresentation(map[string]any{"id": "a2"})
	require.NoError(t, err)
	assert.Equal(t, account{ID: "a2", Label: "main"}, v)

	_, err = e.FromRepresentation(map[string]any{})
	require.Error(t, err)
	assert.True(t, schema.IsValidationError(err))
}

func TestSchemaOf_Pointer(t *testing.T) {
	e, err := SchemaOf(reflect.TypeOf(&account{}))
	require.NoError(t, err)

	v, err := e.FromRepresentation(map[string]any{"id": "p"})
	require.NoError(t, err)
	assert.Equal(t, &account{ID: "p", Label: "main"}, v)
}

func TestSchemaOf_NotStruct(t *testing.T) {
	_, err := SchemaOf(reflect.TypeOf(0))
	require.Error(t, err)
	assert.Panics(t, func() { Schema[int]() })
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		ok   bool
		kind Kind
	}{
		{"custom value", reflect.TypeOf(point{}), true, KindCustom},
		{"custom pointer", reflect.TypeOf(&point{}), true, KindCustom},
		{"schema marked", reflect.TypeOf(account{}), true, KindSchema},
		{"plain struct", reflect.TypeOf(plain{}), false, 0},
		{"anonymous struct", reflect.TypeOf(struct{ A int }{}), false, 0},
		{"builtin", reflect.TypeOf(""), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok, err := Describe(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.kind, e.Kind)
				assert.Equal(t, tt.typ, e.Type)
			}
		})
	}
}

func TestNamed(t *testing.T) {
	e := Custom[point]().Named("Vec", "math")
	assert.Equal(t, Key{Name: "Vec", Namespace: "math"}, e.Key)
	assert.Equal(t, KindCustom, e.Kind)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := New()
	_, err := r.Resolve("Point", "geo")
	require.Error(t, err)
	assert.True(t, IsUnknownType(err))

	var ute *UnknownTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "Point", ute.Name)
	assert.Equal(t, "geo", ute.Namespace)
	assert.Contains(t, err.Error(), `"Point"`)

	r.Register(Custom[point]())
	e, err := r.Resolve("Point", "geo")
	require.NoError(t, err)
	assert.Equal(t, KindCustom, e.Kind)
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := New()
	r.Register(Custom[point]())
	r.Register(Custom[point]())
	assert.Equal(t, 1, r.Len())

	// Last write wins.
	r.Register(Schema[account]().Named("Point", "geo"))
	e, err := r.Resolve("Point", "geo")
	require.NoError(t, err)
	assert.Equal(t, KindSchema, e.Kind)
}

func TestRegistry_ReplaceType(t *testing.T) {
	pointType := reflect.TypeOf(point{})
	accountType := reflect.TypeOf(account{})

	r := New()
	r.Register(Custom[point]())
	r.Register(Schema[account]().Named("Point", "geo"))

	_, ok := r.Lookup(pointType)
	assert.False(t, ok, "replaced type keeps no record identity")
	e, ok := r.Lookup(accountType)
	require.True(t, ok)
	assert.Equal(t, Key{Name: "Point", Namespace: "geo"}, e.Key)

	// The replaced type does not take its key back through Ensure.
	_, ok, err := r.Ensure(pointType)
	require.NoError(t, err)
	assert.False(t, ok)
	e, err = r.Resolve("Point", "geo")
	require.NoError(t, err)
	assert.Equal(t, accountType, e.Type)

	// Registering it again under its own key restores it.
	r.RegisterMany(Custom[point]().Named("Point", "geo"))
	_, ok = r.Lookup(accountType)
	assert.False(t, ok)
	_, ok = r.Lookup(pointType)
	assert.True(t, ok)
}

func TestRegistry_NFCKeys(t *testing.T) {
	// Precomposed and decomposed spellings resolve to the same key.
	// "é" precomposed vs "e" + combining acute.
	r := New()
	r.Register(Custom[point]().Named("caf\u00e9", "geo"))
	e, err := r.Resolve("cafe\u0301", "geo")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", e.Name)
}

func TestRegistry_Lookup(t *testing.T) {
	r := New()
	_, ok := r.Lookup(reflect.TypeOf(point{}))
	assert.False(t, ok)

	r.Register(Custom[point]())
	e, ok := r.Lookup(reflect.TypeOf(point{}))
	require.True(t, ok)
	assert.Equal(t, "Point", e.Name)
}

func TestRegistry_Ensure(t *testing.T) {
	r := New()

	e, ok, err := r.Ensure(reflect.TypeOf(account{}))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindSchema, e.Kind)

	_, err = r.Resolve(e.Name, e.Namespace)
	require.NoError(t, err)

	_, ok, err = r.Ensure(reflect.TypeOf(plain{}))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())

	// Explicit registration replaces a cached negative result.
	r.Register(Entry{Key: MakeKey("plain", "x"), Kind: KindCustom, Type: reflect.TypeOf(plain{})})
	_, ok = r.Lookup(reflect.TypeOf(plain{}))
	assert.True(t, ok)
}

func TestRegistry_RegisterMany(t *testing.T) {
	r := New()
	r.RegisterMany(Custom[point](), Schema[account]())
	assert.Equal(t, 2, r.Len())

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "geo", entries[0].Namespace)
	assert.Equal(t, "account", entries[1].Name)
}

func TestRegistry_ConcurrentEnsure(t *testing.T) {
	r := New()
	types := []reflect.Type{
		reflect.TypeOf(point{}),
		reflect.TypeOf(&point{}),
		reflect.TypeOf(account{}),
		reflect.TypeOf(plain{}),
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				typ := types[(i+j)%len(types)]
				_, _, err := r.Ensure(typ)
				assert.NoError(t, err)
				_, _ = r.Resolve("Point", "geo")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, r.Len())
	_, err := r.Resolve("Point", "geo")
	assert.NoError(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "custom", KindCustom.String())
	assert.Equal(t, "schema", KindSchema.String())
	assert.Equal(t, "unknown(9)", Kind(9).String())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}
