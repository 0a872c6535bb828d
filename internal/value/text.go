package value

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Marshal produces the canonical text of n.
//
// Two nodes that describe the same value always produce the same bytes:
//  1. Record fields are sorted by UTF-16 code units (RFC 8785 order)
//  2. Set elements are deduplicated and sorted by their own canonical text
//  3. Strings escape only '"', '\' and control characters (no HTML escaping)
//  4. Floats use the shortest round-trip form and always carry '.' or an exponent
//
// Marshal fails on non-finite floats, invalid UTF-8 text and nil big integers.
func Marshal(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n Node) error {
	switch val := n.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case BigInt:
		if val.Int == nil {
			return fmt.Errorf("big integer is nil")
		}
		buf.WriteString(val.Int.String())
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("float %v is not finite", f)
		}
		buf.WriteString(formatFloat(f))
	case Text:
		return writeString(buf, string(val))
	case Bytes:
		writeTagged(buf, TagBytes)
		buf.WriteByte('"')
		buf.WriteString(EncodeHex(val))
		buf.WriteString(`"}`)
	case Timestamp:
		writeTagged(buf, TagTimestamp)
		buf.WriteByte('"')
		buf.WriteString(FormatTimestamp(val.Time))
		buf.WriteString(`"}`)
	case Duration:
		writeTagged(buf, TagDuration)
		buf.WriteString(formatFloat(DurationSeconds(time.Duration(val))))
		buf.WriteByte('}')
	case UniqueID:
		writeTagged(buf, TagUniqueID)
		buf.WriteByte('"')
		buf.WriteString(FormatUUID(uuid.UUID(val)))
		buf.WriteString(`"}`)
	case List:
		writeTagged(buf, TagList)
		if err := writeElems(buf, val); err != nil {
			return err
		}
		buf.WriteByte('}')
	case Tuple:
		writeTagged(buf, TagTuple)
		if err := writeElems(buf, val); err != nil {
			return err
		}
		buf.WriteByte('}')
	case Set:
		writeTagged(buf, TagSet)
		if err := writeSet(buf, val); err != nil {
			return err
		}
		buf.WriteByte('}')
	case Map:
		writeTagged(buf, TagMap)
		if err := writePairs(buf, val); err != nil {
			return err
		}
		buf.WriteByte('}')
	case Record:
		return writeRecord(buf, val)
	default:
		return fmt.Errorf("unknown node type: %T", n)
	}
	return nil
}

// writeTagged opens a tagged node up to and including the "value" key.
func writeTagged(buf *bytes.Buffer, tag string) {
	buf.WriteString(`{"_type":"`)
	buf.WriteString(tag)
	buf.WriteString(`","value":`)
}

func writeElems(buf *bytes.Buffer, elems []Node) error {
	buf.WriteByte('[')
	for i, elem := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeNode(buf, elem); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeSet writes set elements deduplicated and sorted by canonical text.
func writeSet(buf *bytes.Buffer, elems Set) error {
	texts, err := CanonicalElements(elems)
	if err != nil {
		return err
	}
	buf.WriteByte('[')
	for i, text := range texts {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(text)
	}
	buf.WriteByte(']')
	return nil
}

// CanonicalElements marshals each element, then sorts and deduplicates the
// results bytewise. This is the order in which set elements appear on the wire.
func CanonicalElements(elems []Node) ([][]byte, error) {
	texts := make([][]byte, 0, len(elems))
	for i, elem := range elems {
		text, err := Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("set element %d: %w", i, err)
		}
		texts = append(texts, text)
	}
	slices.SortFunc(texts, bytes.Compare)
	return slices.CompactFunc(texts, bytes.Equal), nil
}

// SortSet returns elems in wire order with duplicates removed. Two elements
// are duplicates when their canonical texts are equal.
func SortSet(elems []Node) (Set, error) {
	type keyed struct {
		text []byte
		node Node
	}
	ks := make([]keyed, 0, len(elems))
	for i, elem := range elems {
		text, err := Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("set element %d: %w", i, err)
		}
		ks = append(ks, keyed{text, elem})
	}
	slices.SortStableFunc(ks, func(a, b keyed) int { return bytes.Compare(a.text, b.text) })
	ks = slices.CompactFunc(ks, func(a, b keyed) bool { return bytes.Equal(a.text, b.text) })
	out := make(Set, len(ks))
	for i, k := range ks {
		out[i] = k.node
	}
	return out, nil
}

func writePairs(buf *bytes.Buffer, pairs Map) error {
	buf.WriteByte('[')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		if err := writeNode(buf, p.Key); err != nil {
			return fmt.Errorf("map key %d: %w", i, err)
		}
		buf.WriteByte(',')
		if err := writeNode(buf, p.Value); err != nil {
			return fmt.Errorf("map value %d: %w", i, err)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return nil
}

func writeRecord(buf *bytes.Buffer, rec Record) error {
	buf.WriteString(`{"_type":`)
	if err := writeString(buf, rec.Name); err != nil {
		return fmt.Errorf("record name: %w", err)
	}
	buf.WriteString(`,"_namespace":`)
	if err := writeString(buf, rec.Namespace); err != nil {
		return fmt.Errorf("record namespace: %w", err)
	}
	buf.WriteString(`,"value":{`)
	for i, k := range SortedFieldNames(rec.Fields) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return fmt.Errorf("record %s field name: %w", rec.Name, err)
		}
		buf.WriteByte(':')
		if err := writeNode(buf, rec.Fields[k]); err != nil {
			return fmt.Errorf("record %s field %q: %w", rec.Name, k, err)
		}
	}
	buf.WriteString("}}")
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString writes s as a JSON string. Only '"', '\' and control
// characters are escaped; everything else is written verbatim.
func writeString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("text is not valid UTF-8")
	}
	buf.WriteByte('"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		buf.WriteString(s[start:i])
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[c>>4])
			buf.WriteByte(hexDigits[c&0xf])
		}
		start = i + 1
	}
	buf.WriteString(s[start:])
	buf.WriteByte('"')
	return nil
}

// SortedFieldNames returns the keys of fields in RFC 8785 order
// (UTF-16 code units).
// CRITICAL: Go's string comparison uses UTF-8 bytes, which orders
// supplementary-plane characters differently.
func SortedFieldNames[V any](fields map[string]V) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
