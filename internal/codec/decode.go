package codec

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/kvserde/internal/value"
)

func (c *Codec) decode(n value.Node) (any, error) {
	switch n := n.(type) {
	case nil, value.Null:
		return nil, nil
	case value.Bool:
		return bool(n), nil
	case value.Int:
		return int64(n), nil
	case value.BigInt:
		if n.Int == nil {
			return nil, fmt.Errorf("%w: big int without digits", value.ErrMalformedPayload)
		}
		return new(big.Int).Set(n.Int), nil
	case value.Float:
		return float64(n), nil
	case value.Text:
		return string(n), nil
	case value.Bytes:
		out := make([]byte, len(n))
		copy(out, n)
		return out, nil
	case value.Timestamp:
		return n.Time, nil
	case value.Duration:
		return time.Duration(n), nil
	case value.UniqueID:
		return uuid.UUID(n), nil
	case value.List:
		elems, err := c.decodeElems(n)
		return elems, err
	case value.Tuple:
		elems, err := c.decodeElems(n)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil
	case value.Set:
		sorted, err := value.SortSet(n)
		if err != nil {
			return nil, err
		}
		elems, err := c.decodeElems(sorted)
		if err != nil {
			return nil, err
		}
		return Set(elems), nil
	case value.Map:
		return c.decodeMap(n)
	case value.Record:
		return c.decodeRecord(n)
	default:
		return nil, fmt.Errorf("%w: unexpected node %T", value.ErrMalformedPayload, n)
	}
}

func (c *Codec) decodeElems(nodes []value.Node) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := c.decode(n)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (c *Codec) decodeMap(pairs value.Map) (*Map, error) {
	m := &Map{entries: make([]Entry, 0, len(pairs))}
	for i, p := range pairs {
		k, err := c.decode(p.Key)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		v, err := c.decode(p.Value)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		m.Set(k, v)
	}
	return m, nil
}

func (c *Codec) decodeRecord(rec value.Record) (any, error) {
	entry, err := c.reg.Resolve(rec.Name, rec.Namespace)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(rec.Fields))
	for name, n := range rec.Fields {
		v, err := c.decode(n)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", rec.Name, name, err)
		}
		fields[name] = v
	}
	v, err := entry.FromRepresentation(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Key, err)
	}
	return v, nil
}
