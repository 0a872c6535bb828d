package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// Unmarshal parses wire text into a Node with strict validation.
//
// Whitespace, object key order and set element order are not significant,
// but every object must be a well-formed tagged node: bare objects, bare
// arrays, unknown tags and extra keys are rejected. All failures wrap
// ErrMalformedPayload.
func Unmarshal(data []byte) (Node, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformedf("%v", err)
	}
	return parseNode(raw)
}

// parseNode decodes one JSON value, dispatching on its first byte.
func parseNode(data []byte) (Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, malformedf("empty JSON value")
	}

	switch data[0] {
	case 'n':
		return Null{}, nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, malformedf("%v", err)
		}
		return Bool(b), nil

	case '"':
		s, err := parseString(data)
		if err != nil {
			return nil, err
		}
		return Text(s), nil

	case '[':
		return nil, malformedf("untagged array; sequences must be wrapped in a tagged node")

	case '{':
		return parseObject(data)

	default:
		return parseNumber(data)
	}
}

// parseNumber returns Float when the literal has a fraction or exponent,
// Int when it fits in int64, and BigInt otherwise.
func parseNumber(data []byte) (Node, error) {
	s := string(data)
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, malformedf("float %s: %v", truncate(s, 32), err)
		}
		return Float(f), nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return Int(n), nil
	}
	if !errors.Is(err, strconv.ErrRange) {
		return nil, malformedf("int %s: %v", truncate(s, 32), err)
	}
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, malformedf("int %s: not a decimal integer", truncate(s, 32))
	}
	return BigInt{Int: bi}, nil
}

func parseObject(data []byte) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, malformedf("%v", err)
	}

	typeRaw, ok := fields[keyType]
	if !ok {
		return nil, malformedf("object without %q", keyType)
	}
	tag, err := parseString(typeRaw)
	if err != nil {
		return nil, malformedf("%s: %v", keyType, err)
	}
	valueRaw, ok := fields[keyValue]
	if !ok {
		return nil, malformedf("%q node without %q", tag, keyValue)
	}

	if nsRaw, ok := fields[keyNamespace]; ok {
		if len(fields) != 3 {
			return nil, malformedf("record %q has unexpected keys", tag)
		}
		ns, err := parseString(nsRaw)
		if err != nil {
			return nil, malformedf("record %q %s: %v", tag, keyNamespace, err)
		}
		return parseRecord(tag, ns, valueRaw)
	}
	if len(fields) != 2 {
		return nil, malformedf("%q node has unexpected keys", tag)
	}

	switch tag {
	case TagTimestamp:
		s, err := parseString(valueRaw)
		if err != nil {
			return nil, err
		}
		t, err := ParseTimestamp(s)
		if err != nil {
			return nil, err
		}
		return Timestamp{Time: t}, nil

	case TagDuration:
		num, err := parseNumber(bytes.TrimSpace(valueRaw))
		if err != nil {
			return nil, err
		}
		var sec float64
		switch n := num.(type) {
		case Int:
			sec = float64(n)
		case Float:
			sec = float64(n)
		default:
			return nil, malformedf("duration out of range")
		}
		d, err := DurationFromSeconds(sec)
		if err != nil {
			return nil, err
		}
		return Duration(d), nil

	case TagBytes:
		s, err := parseString(valueRaw)
		if err != nil {
			return nil, err
		}
		b, err := DecodeHex(s)
		if err != nil {
			return nil, err
		}
		return Bytes(b), nil

	case TagUniqueID:
		s, err := parseString(valueRaw)
		if err != nil {
			return nil, err
		}
		id, err := ParseUUID(s)
		if err != nil {
			return nil, err
		}
		return UniqueID(id), nil

	case TagList:
		elems, err := parseArray(valueRaw)
		if err != nil {
			return nil, err
		}
		return List(elems), nil

	case TagTuple:
		elems, err := parseArray(valueRaw)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil

	case TagSet:
		elems, err := parseArray(valueRaw)
		if err != nil {
			return nil, err
		}
		return Set(elems), nil

	case TagMap:
		return parsePairs(valueRaw)

	default:
		return nil, malformedf("unknown node type %q", tag)
	}
}

func parseRecord(name, namespace string, data []byte) (Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, malformedf("record %q value must be an object", name)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformedf("%v", err)
	}
	fields := make(map[string]Node, len(raw))
	for k, v := range raw {
		n, err := parseNode(v)
		if err != nil {
			return nil, wrapPath("record "+name+" field "+strconv.Quote(k), err)
		}
		fields[k] = n
	}
	return Record{Name: name, Namespace: namespace, Fields: fields}, nil
}

func parseArray(data []byte) ([]Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, malformedf("expected array")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformedf("%v", err)
	}
	elems := make([]Node, len(raw))
	for i, v := range raw {
		n, err := parseNode(v)
		if err != nil {
			return nil, wrapPath("["+strconv.Itoa(i)+"]", err)
		}
		elems[i] = n
	}
	return elems, nil
}

func parsePairs(data []byte) (Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, malformedf("map value must be an array of pairs")
	}
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformedf("map entries: %v", err)
	}
	pairs := make(Map, 0, len(raw))
	for i, entry := range raw {
		if len(entry) != 2 {
			return nil, malformedf("map entry %d has %d elements, want 2", i, len(entry))
		}
		k, err := parseNode(entry[0])
		if err != nil {
			return nil, wrapPath("map key "+strconv.Itoa(i), err)
		}
		v, err := parseNode(entry[1])
		if err != nil {
			return nil, wrapPath("map value "+strconv.Itoa(i), err)
		}
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return pairs, nil
}

func parseString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return "", malformedf("expected string")
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", malformedf("%v", err)
	}
	return s, nil
}

// wrapPath prefixes err with the location it occurred at.
func wrapPath(path string, err error) error {
	return &pathError{path: path, err: err}
}

type pathError struct {
	path string
	err  error
}

func (e *pathError) Error() string { return e.path + ": " + e.err.Error() }
func (e *pathError) Unwrap() error { return e.err }
