package cli

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvserde/internal/codec"
	"github.com/roach88/kvserde/internal/value"
)

func TestParseDocument_Scalars(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name string
		doc  string
		want any
	}{
		{"null", "null", nil},
		{"empty", "", nil},
		{"bool", "true", true},
		{"int", "42", int64(42)},
		{"negative int", "-7", int64(-7)},
		{"big int", "123456789012345678901234567890", huge},
		{"float", "1.5", 1.5},
		{"string", "hello", "hello"},
		{"quoted number", `"42"`, "42"},
		{"binary", "!!binary AQID", []byte{1, 2, 3}},
		{"uuid", "!uuid 12345678-1234-5678-1234-567812345678",
			uuid.MustParse("12345678-1234-5678-1234-567812345678")},
		{"duration", "!duration 1m30s", 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDocument([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDocument_Timestamp(t *testing.T) {
	got, err := parseDocument([]byte("2024-05-01T12:00:00+02:00"))
	require.NoError(t, err)

	ts, ok := got.(time.Time)
	require.True(t, ok, "got %T", got)
	assert.True(t, ts.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	_, offset := ts.Zone()
	assert.Equal(t, 2*3600, offset)
}

func TestParseDocument_NaiveTimestampRejected(t *testing.T) {
	_, err := parseDocument([]byte("2024-05-01"))
	require.Error(t, err)
}

func TestParseDocument_Containers(t *testing.T) {
	got, err := parseDocument([]byte(`{a: !tuple [1, 2], b: !!set {3, 2}, c: [x, y], d: !set [1, 1]}`))
	require.NoError(t, err)

	want := codec.NewMap()
	want.Set("a", codec.Tuple{int64(1), int64(2)})
	want.Set("b", codec.Set{int64(3), int64(2)})
	want.Set("c", []any{"x", "y"})
	want.Set("d", codec.Set{int64(1), int64(1)})
	assert.Equal(t, want, got)
}

func TestParseDocument_ComplexKeys(t *testing.T) {
	doc := "? !tuple [1, 2]\n: pair\n"
	got, err := parseDocument([]byte(doc))
	require.NoError(t, err)

	m, ok := got.(*codec.Map)
	require.True(t, ok, "got %T", got)
	v, ok := m.Get(codec.Tuple{int64(1), int64(2)})
	require.True(t, ok)
	assert.Equal(t, "pair", v)
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"syntax", "a: [1, 2", "parse document"},
		{"record", "!record {_type: X}", "records cannot be built"},
		{"unknown scalar tag", "!color red", "unsupported scalar tag"},
		{"unknown sequence tag", "!bag [1]", "unsupported sequence tag"},
		{"set with values", "!!set {a: 1}", "must not have values"},
		{"merge key", "base: &b {x: 1}\nderived:\n  <<: *b\n", "merge keys"},
		{"bad duration", "!duration soon", "invalid !duration"},
		{"bad uuid", "!uuid nope", "uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDocument([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRenderYAML(t *testing.T) {
	n := value.Map{
		{Key: value.Text("id"), Value: value.UniqueID(uuid.MustParse("12345678-1234-5678-1234-567812345678"))},
		{Key: value.Text("pair"), Value: value.Tuple{value.Int(1), value.Float(2)}},
		{Key: value.Text("tags"), Value: value.Set{value.Text("b"), value.Text("a")}},
		{Key: value.Text("ttl"), Value: value.Duration(90 * time.Second)},
		{Key: value.Text("blob"), Value: value.Bytes{1, 2, 3}},
		{Key: value.Text("text"), Value: value.Text("42")},
	}

	var buf bytes.Buffer
	require.NoError(t, renderYAML(&buf, n))
	out := buf.String()

	assert.Contains(t, out, "id: !uuid 12345678-1234-5678-1234-567812345678")
	assert.Contains(t, out, "pair: !tuple")
	assert.Contains(t, out, "- 2.0")
	assert.Contains(t, out, "tags: !!set")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a:")), bytes.Index(buf.Bytes(), []byte("b:")))
	assert.Contains(t, out, "ttl: !duration 1m30s")
	assert.Contains(t, out, "blob: !!binary AQID")
	assert.Contains(t, out, `text: "42"`)
}

func TestRenderYAML_Record(t *testing.T) {
	rec := value.Record{
		Name:      "Point",
		Namespace: "geo",
		Fields:    map[string]value.Node{"y": value.Float(-2), "x": value.Float(1.5)},
	}

	var buf bytes.Buffer
	require.NoError(t, renderYAML(&buf, rec))
	out := buf.String()

	assert.Contains(t, out, "!record")
	assert.Contains(t, out, "_type: Point")
	assert.Contains(t, out, "_namespace: geo")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("x:")), bytes.Index(buf.Bytes(), []byte("y:")))
}

func TestYAMLRoundTrip(t *testing.T) {
	doc := `{name: widget, dims: !tuple [1, 2.5], seen: 2024-05-01T12:00:00Z, ttl: !duration 2h}`
	host, err := parseDocument([]byte(doc))
	require.NoError(t, err)

	n, err := codec.New(nil).ToNode(host)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderYAML(&buf, n))

	again, err := parseDocument(buf.Bytes())
	require.NoError(t, err)
	n2, err := codec.New(nil).ToNode(again)
	require.NoError(t, err)

	want, err := value.Marshal(n)
	require.NoError(t, err)
	got, err := value.Marshal(n2)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}
