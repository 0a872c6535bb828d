package envelope

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvserde/internal/codec"
	"github.com/roach88/kvserde/internal/registry"
	"github.com/roach88/kvserde/internal/schema"
	"github.com/roach88/kvserde/internal/value"
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

type order struct {
	ID       string        `kv:"id" validate:"required"`
	Qty      int           `kv:"qty" validate:"gte=1" default:"1"`
	Placed   time.Time     `kv:"placed"`
	Window   time.Duration `kv:"window"`
	Customer uuid.UUID     `kv:"customer"`
	Where    point         `kv:"where"`
}

func (order) KVSchema() {}

func newEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(registry.New(), cfg)
	require.NoError(t, err)
	return e
}

func roundTrip(t *testing.T, e *Engine, v any) any {
	t.Helper()
	payload, err := e.Encode(v)
	require.NoError(t, err)
	out, err := e.Decode(payload)
	require.NoError(t, err)
	return out
}

func TestRoundTrip(t *testing.T) {
	e := newEngine(t)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", false, false},
		{"int", -17, int64(-17)},
		{"float", 2.5, 2.5},
		{"whole float", 3.0, 3.0},
		{"text", "line\nbreak   <html>", "line\nbreak   <html>"},
		{"empty bytes", []byte{}, []byte{}},
		{"one byte", []byte{7}, []byte{7}},
		{"bytes", []byte("hello"), []byte("hello")},
		{"duration", 1500 * time.Millisecond, 1500 * time.Millisecond},
		{"max duration", time.Duration(math.MaxInt64), time.Duration(math.MaxInt64)},
		{"min duration", time.Duration(math.MinInt64), time.Duration(math.MinInt64)},
		{"uuid", id, id},
		{"list", []any{1, "a", nil}, []any{int64(1), "a", nil}},
		{"host list", codec.List{uint8(1), "b"}, []any{int64(1), "b"}},
		{"tuple", codec.Tuple{1, codec.Tuple{2}}, codec.Tuple{int64(1), codec.Tuple{int64(2)}}},
		{"set", codec.NewSet("b", "a"), codec.Set{"a", "b"}},
		{"custom record", point{1.5, -2}, point{1.5, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundTrip(t, e, tt.in))
		})
	}
}

func TestRoundTrip_Timestamps(t *testing.T) {
	e := newEngine(t)
	for _, in := range []time.Time{
		time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC),
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CEST", 2*3600)),
		time.Date(1969, 12, 31, 23, 59, 59, 0, time.FixedZone("", -(5*3600+30*60))),
	} {
		out := roundTrip(t, e, in)
		got, ok := out.(time.Time)
		require.True(t, ok)
		assert.True(t, in.Equal(got), "%s != %s", in, got)

		_, wantOff := in.Zone()
		_, gotOff := got.Zone()
		assert.Equal(t, wantOff, gotOff)
	}
}

func TestRoundTrip_SchemaRecord(t *testing.T) {
	e := newEngine(t)
	in := order{
		ID:       "o-1",
		Qty:      3,
		Placed:   time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
		Window:   90 * time.Second,
		Customer: uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
		Where:    point{1, 2},
	}
	assert.Equal(t, in, roundTrip(t, e, in))
}

func TestConcreteScenario(t *testing.T) {
	e := newEngine(t)
	payload, err := e.Encode(map[string]any{
		"a": codec.Tuple{1, 2},
		"b": codec.NewSet(3, 3, 2),
	})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "scenario", payload)

	out, err := e.Decode(payload)
	require.NoError(t, err)
	m, ok := out.(*codec.Map)
	require.True(t, ok)

	a, _ := m.Get("a")
	assert.Equal(t, codec.Tuple{int64(1), int64(2)}, a)
	b, _ := m.Get("b")
	assert.Equal(t, codec.Set{int64(2), int64(3)}, b)
}

func TestRecordGolden(t *testing.T) {
	e := newEngine(t)
	payload, err := e.Encode(point{1.5, -2})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "record", payload)
}

func TestSetOrderingIsIdempotent(t *testing.T) {
	e := newEngine(t)
	a, err := e.Encode(codec.NewSet(1, "x", codec.Tuple{1, 2}, nil))
	require.NoError(t, err)
	b, err := e.Encode(codec.NewSet(nil, codec.Tuple{1, 2}, "x", 1, 1))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := e.Encode(map[int]struct{}{3: {}, 1: {}, 2: {}})
	require.NoError(t, err)
	d, err := e.Encode(codec.NewSet(2, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, c, d)
}

func TestThresholdBoundary(t *testing.T) {
	for _, alg := range []Compression{CompressionZlib, CompressionZstd, CompressionLZ4} {
		t.Run(alg.String(), func(t *testing.T) {
			e := newEngine(t, func(c *Config) { c.Compression = alg })

			// A string of n bytes has n+2 bytes of text.
			below := strings.Repeat("a", DefaultThreshold-3)
			at := strings.Repeat("a", DefaultThreshold-2)

			raw, err := e.Encode(below)
			require.NoError(t, err)
			assert.Equal(t, MarkerRaw, raw[0])
			assert.Len(t, raw, DefaultThreshold)

			packed, err := e.Encode(at)
			require.NoError(t, err)
			assert.Equal(t, alg.Marker(), packed[0])
			assert.Less(t, len(packed), DefaultThreshold)

			out, err := e.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, below, out)

			out, err = e.Decode(packed)
			require.NoError(t, err)
			assert.Equal(t, at, out)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	e := newEngine(t)
	for _, p := range [][]byte{nil, {}} {
		v, err := e.Decode(p)
		require.NoError(t, err)
		assert.Nil(t, v)
	}
}

func TestDecode_UnregisteredType(t *testing.T) {
	writer := newEngine(t)
	payload, err := writer.Encode(point{3, 4})
	require.NoError(t, err)

	reader := newEngine(t)
	_, err = reader.Decode(payload)
	require.Error(t, err)
	assert.True(t, registry.IsUnknownType(err))

	reader.Registry().Register(registry.Custom[point]())
	out, err := reader.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, point{3, 4}, out)
}

func TestDecode_SchemaValidationFailure(t *testing.T) {
	e := newEngine(t)
	e.Registry().Register(registry.Schema[order]())

	payload := []byte(`R{"_type":"order","_namespace":"github.com/roach88/kvserde/internal/envelope","value":{"qty":0}}`)
	_, err := e.Decode(payload)
	require.Error(t, err)
	assert.True(t, schema.IsValidationError(err))
}

func TestDecode_Malformed(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		name    string
		payload []byte
	}{
		{"unknown marker", []byte(`X{}`)},
		{"marker only", []byte{MarkerRaw}},
		{"bad text", []byte(`R{"_type":"list"`)},
		{"bare array", []byte(`R[1,2]`)},
		{"bad hex", []byte(`R{"_type":"bytes","value":"abc"}`)},
		{"corrupt zlib", []byte("Znot zlib")},
		{"corrupt zstd", []byte("Snot zstd")},
		{"corrupt lz4", []byte("Lnot lz4")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Decode(tt.payload)
			require.Error(t, err)
			assert.Nil(t, v)
			assert.True(t, IsMalformedPayload(err), "%v", err)
		})
	}
}

func TestDecode_MalformedBytesError(t *testing.T) {
	e := newEngine(t)
	_, err := e.Decode([]byte(`R{"_type":"bytes","value":"zz"}`))
	var mbe *value.MalformedBytesError
	require.ErrorAs(t, err, &mbe)
	assert.Equal(t, "invalid hex character", mbe.Reason)
}

func TestDecode_TextSizeLimit(t *testing.T) {
	long := strings.Repeat("a", 64<<10)
	for _, c := range []Compression{CompressionZlib, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			payload, err := newEngine(t, func(cfg *Config) { cfg.Compression = c }).Encode(long)
			require.NoError(t, err)
			require.Less(t, len(payload), 4<<10)

			_, err = newEngine(t, func(cfg *Config) { cfg.MaxTextSize = 4 << 10 }).Decode(payload)
			require.Error(t, err)
			assert.True(t, IsMalformedPayload(err))
			assert.Contains(t, err.Error(), "exceeds 4096 bytes")

			got, err := newEngine(t, func(cfg *Config) { cfg.MaxTextSize = len(long) + 2 }).Decode(payload)
			require.NoError(t, err)
			assert.Equal(t, long, got)
		})
	}
}

func TestEncode_Unsupported(t *testing.T) {
	e := newEngine(t)
	_, err := e.Encode(make(chan int))
	require.Error(t, err)
	assert.True(t, codec.IsUnsupportedType(err))
}

func TestEncode_Cyclic(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.MaxDepth = 8 })
	self := map[string]any{}
	self["self"] = self
	_, err := e.Encode(self)
	require.Error(t, err)
	assert.True(t, codec.IsCyclicValue(err))
}

func TestInspect(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Threshold = 16 })
	payload, err := e.Encode(point{1, 2})
	require.NoError(t, err)

	// Inspect works without the type being registered anywhere.
	info, err := Inspect(payload)
	require.NoError(t, err)
	assert.Equal(t, MarkerZlib, info.Marker)
	assert.Equal(t, CompressionZlib, info.Compression)
	assert.Equal(t, len(payload), info.WireSize)
	assert.Equal(t, `{"_type":"Point","_namespace":"geo","value":{"x":1.0,"y":2.0}}`, string(info.Text))
	assert.Equal(t, len(info.Text), info.TextSize)
	assert.Equal(t, value.KindRecord, info.Kind)
	assert.Equal(t, "geo.Point", info.Record)
	rec, ok := info.Node.(value.Record)
	require.True(t, ok)
	assert.Equal(t, value.Float(2), rec.Fields["y"])

	info, err = Inspect(nil)
	require.NoError(t, err)
	assert.Equal(t, value.KindNull, info.Kind)
	assert.Equal(t, value.Null{}, info.Node)

	_, err = Inspect([]byte("?"))
	assert.True(t, IsMalformedPayload(err))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Threshold = 0 }},
		{"no compression", func(c *Config) { c.Compression = CompressionNone }},
		{"unknown compression", func(c *Config) { c.Compression = Compression(42) }},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }},
		{"zero max text size", func(c *Config) { c.MaxTextSize = 0 }},
		{"max text size above limit", func(c *Config) { c.MaxTextSize = MaxTextSizeLimit + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(nil, cfg)
			assert.Error(t, err)
		})
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionZlib, CompressionZstd, CompressionLZ4} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
	assert.Equal(t, "unknown(9)", Compression(9).String())
}

func TestConcurrentEncodeDecode(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Threshold = 32 })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				in := []any{point{float64(i), float64(j)}, order{ID: fmt.Sprint(i, j), Qty: 1}}
				payload, err := e.Encode(in)
				if !assert.NoError(t, err) {
					return
				}
				out, err := e.Decode(payload)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, in, out)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 2, e.Registry().Len())
}

func TestMetrics(t *testing.T) {
	e := newEngine(t)
	before := encodesTotal.Get()
	_, err := e.Encode(1)
	require.NoError(t, err)
	assert.Equal(t, before+1, encodesTotal.Get())

	var buf bytes.Buffer
	WriteMetrics(&buf)
	assert.Contains(t, buf.String(), "kvserde_encodes_total")
}
