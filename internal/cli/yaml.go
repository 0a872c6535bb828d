package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kvserde/internal/codec"
	"github.com/roach88/kvserde/internal/value"
)

// Local YAML tags for kinds that YAML has no standard tag for.
const (
	tagTuple    = "!tuple"
	tagSet      = "!set"
	tagUUID     = "!uuid"
	tagDuration = "!duration"
	tagRecord   = "!record"
)

// parseDocument reads one YAML (or JSON) document into codec host values.
// An empty document yields nil.
func parseDocument(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}
	return fromYAML(&root)
}

func fromYAML(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return fromYAML(node.Content[0])
	case yaml.AliasNode:
		return fromYAML(node.Alias)
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	case yaml.SequenceNode:
		elems := make([]any, len(node.Content))
		for i, child := range node.Content {
			v, err := fromYAML(child)
			if err != nil {
				return nil, fmt.Errorf("line %d: [%d]: %w", node.Line, i, err)
			}
			elems[i] = v
		}
		switch node.ShortTag() {
		case "!!seq":
			return elems, nil
		case tagTuple:
			return codec.Tuple(elems), nil
		case tagSet:
			return codec.Set(elems), nil
		default:
			return nil, fmt.Errorf("line %d: unsupported sequence tag %s", node.Line, node.Tag)
		}
	case yaml.MappingNode:
		return mappingFromYAML(node)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func scalarFromYAML(node *yaml.Node) (any, error) {
	switch tag := node.ShortTag(); tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return i, nil
		}
		b, ok := new(big.Int).SetString(strings.ReplaceAll(node.Value, "_", ""), 0)
		if !ok {
			return nil, fmt.Errorf("line %d: invalid integer %q", node.Line, node.Value)
		}
		return b, nil
	case "!!float":
		// Plain integers beyond 64 bits resolve as floats.
		if node.Style&yaml.TaggedStyle == 0 && isDecimal(node.Value) {
			if b, ok := new(big.Int).SetString(strings.ReplaceAll(node.Value, "_", ""), 10); ok {
				return b, nil
			}
		}
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!str":
		return node.Value, nil
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(node.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid !!binary: %w", node.Line, err)
		}
		return b, nil
	case "!!timestamp":
		return value.ParseTimestamp(node.Value)
	case tagUUID:
		return value.ParseUUID(node.Value)
	case tagDuration:
		d, err := time.ParseDuration(node.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid !duration: %w", node.Line, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported scalar tag %s", node.Line, tag)
	}
}

func isDecimal(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

func mappingFromYAML(node *yaml.Node) (any, error) {
	tag := node.ShortTag()
	if tag != "!!map" && tag != "!!set" {
		if tag == tagRecord {
			return nil, fmt.Errorf("line %d: records cannot be built from YAML", node.Line)
		}
		return nil, fmt.Errorf("line %d: unsupported mapping tag %s", node.Line, node.Tag)
	}

	m := codec.NewMap()
	var set codec.Set
	for i := 0; i+1 < len(node.Content); i += 2 {
		kn, vn := node.Content[i], node.Content[i+1]
		if kn.ShortTag() == "!!merge" {
			return nil, fmt.Errorf("line %d: merge keys are not supported", kn.Line)
		}
		k, err := fromYAML(kn)
		if err != nil {
			return nil, err
		}
		if tag == "!!set" {
			if vn.ShortTag() != "!!null" {
				return nil, fmt.Errorf("line %d: !!set members must not have values", vn.Line)
			}
			set = append(set, k)
			continue
		}
		v, err := fromYAML(vn)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", kn.Line, k, err)
		}
		m.Set(k, v)
	}
	if tag == "!!set" {
		if set == nil {
			set = codec.Set{}
		}
		return set, nil
	}
	return m, nil
}

// renderYAML writes n as a YAML document. Kinds without a standard YAML tag
// use the local tags !tuple, !uuid, !duration and !record.
func renderYAML(w io.Writer, n value.Node) error {
	node, err := toYAML(n)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

func scalar(tag, text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
}

func toYAML(n value.Node) (*yaml.Node, error) {
	switch n := n.(type) {
	case nil, value.Null:
		return scalar("!!null", "null"), nil
	case value.Bool:
		return scalar("!!bool", strconv.FormatBool(bool(n))), nil
	case value.Int:
		return scalar("!!int", strconv.FormatInt(int64(n), 10)), nil
	case value.BigInt:
		return scalar("!!int", n.Int.String()), nil
	case value.Float:
		text, err := value.Marshal(n)
		if err != nil {
			return nil, err
		}
		return scalar("!!float", string(text)), nil
	case value.Text:
		return scalar("!!str", string(n)), nil
	case value.Bytes:
		return scalar("!!binary", base64.StdEncoding.EncodeToString(n)), nil
	case value.Timestamp:
		return scalar("!!timestamp", value.FormatTimestamp(n.Time)), nil
	case value.Duration:
		return scalar(tagDuration, time.Duration(n).String()), nil
	case value.UniqueID:
		return scalar(tagUUID, value.FormatUUID([16]byte(n))), nil
	case value.List:
		return sequenceToYAML("!!seq", n)
	case value.Tuple:
		return sequenceToYAML(tagTuple, n)
	case value.Set:
		sorted, err := value.SortSet(n)
		if err != nil {
			return nil, err
		}
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!set"}
		for _, elem := range sorted {
			k, err := toYAML(elem)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, k, scalar("!!null", ""))
		}
		return out, nil
	case value.Map:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range n {
			k, err := toYAML(p.Key)
			if err != nil {
				return nil, err
			}
			v, err := toYAML(p.Value)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, k, v)
		}
		return out, nil
	case value.Record:
		fields := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, name := range value.SortedFieldNames(n.Fields) {
			v, err := toYAML(n.Fields[name])
			if err != nil {
				return nil, err
			}
			fields.Content = append(fields.Content, scalar("!!str", name), v)
		}
		return &yaml.Node{Kind: yaml.MappingNode, Tag: tagRecord, Content: []*yaml.Node{
			scalar("!!str", "_type"), scalar("!!str", n.Name),
			scalar("!!str", "_namespace"), scalar("!!str", n.Namespace),
			scalar("!!str", "value"), fields,
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

func sequenceToYAML(tag string, elems []value.Node) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: tag}
	for _, elem := range elems {
		child, err := toYAML(elem)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, child)
	}
	return out, nil
}
