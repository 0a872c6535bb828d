package envelope

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/kvserde/internal/codec"
	"github.com/roach88/kvserde/internal/registry"
	"github.com/roach88/kvserde/internal/value"
)

// ErrMalformedPayload is wrapped by every decode failure caused by corrupt
// framing, compression or text.
var ErrMalformedPayload = value.ErrMalformedPayload

// IsMalformedPayload returns true if err is or wraps ErrMalformedPayload.
func IsMalformedPayload(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}

// Engine encodes Go values into payloads and back. It is safe for
// concurrent use; the only shared mutable state is its registry.
type Engine struct {
	codec *codec.Codec
	cfg   Config
}

// New returns an Engine that resolves records through reg. A nil reg means
// registry.Default().
func New(reg *registry.Registry, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("envelope config: %w", err)
	}
	return &Engine{
		codec: codec.New(reg, codec.WithMaxDepth(cfg.MaxDepth)),
		cfg:   cfg,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Registry returns the registry the engine resolves records through.
func (e *Engine) Registry() *registry.Registry {
	return e.codec.Registry()
}

// Encode converts v into a payload.
func (e *Engine) Encode(v any) ([]byte, error) {
	encodesTotal.Inc()
	payload, err := e.encode(v)
	if err != nil {
		encodeErrorsTotal.Inc()
		return nil, err
	}
	return payload, nil
}

func (e *Engine) encode(v any) ([]byte, error) {
	n, err := e.codec.ToNode(v)
	if err != nil {
		return nil, err
	}
	text, err := value.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	textBytesTotal.Add(len(text))

	if len(text) < e.cfg.Threshold {
		payload := make([]byte, 0, len(text)+1)
		payload = append(payload, MarkerRaw)
		payload = append(payload, text...)
		wireBytesTotal.Add(len(payload))
		return payload, nil
	}

	payload, err := compress([]byte{e.cfg.Compression.Marker()}, e.cfg.Compression, text)
	if err != nil {
		return nil, err
	}
	compressedTotal.Inc()
	wireBytesTotal.Add(len(payload))
	slog.Debug("compressed payload",
		"algorithm", e.cfg.Compression.String(),
		"text_bytes", len(text),
		"wire_bytes", len(payload))
	return payload, nil
}

// Decode converts a payload back into a Go value. An empty payload decodes
// to nil without error.
func (e *Engine) Decode(payload []byte) (any, error) {
	decodesTotal.Inc()
	if len(payload) == 0 {
		emptyDecodesTotal.Inc()
		return nil, nil
	}
	v, err := e.decode(payload)
	if err != nil {
		decodeErrorsTotal.Inc()
		return nil, err
	}
	return v, nil
}

func (e *Engine) decode(payload []byte) (any, error) {
	_, text, err := unframe(payload, e.cfg.MaxTextSize)
	if err != nil {
		return nil, err
	}
	n, err := value.Unmarshal(text)
	if err != nil {
		return nil, err
	}
	return e.codec.FromNode(n)
}

// unframe checks the marker and returns the canonical text, which may be at
// most limit bytes long.
func unframe(payload []byte, limit int) (Compression, []byte, error) {
	c, ok := compressionOf(payload[0])
	if !ok {
		return 0, nil, fmt.Errorf("%w: unknown marker 0x%02x", ErrMalformedPayload, payload[0])
	}
	text, err := decompress(c, payload[1:], limit)
	if err != nil {
		return 0, nil, err
	}
	return c, text, nil
}

// Info describes a payload without reconstructing its value.
type Info struct {
	Marker      byte
	Compression Compression
	WireSize    int
	TextSize    int

	// Text is the canonical text carried by the payload.
	Text []byte

	// Node is the parsed text. Records stay records whether or not their
	// type is registered.
	Node value.Node

	// Kind is the kind of the top-level node.
	Kind value.Kind

	// Record is the "namespace.name" of the top-level record, if any.
	Record string
}

// Inspect decodes the framing and text of payload. It does not consult the
// registry, so it works on records of unregistered types.
func Inspect(payload []byte) (Info, error) {
	if len(payload) == 0 {
		return Info{Node: value.Null{}, Kind: value.KindNull}, nil
	}
	c, text, err := unframe(payload, MaxTextSizeLimit)
	if err != nil {
		return Info{}, err
	}
	n, err := value.Unmarshal(text)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Marker:      payload[0],
		Compression: c,
		WireSize:    len(payload),
		TextSize:    len(text),
		Text:        text,
		Node:        n,
		Kind:        value.KindOf(n),
	}
	if rec, ok := n.(value.Record); ok {
		info.Record = registry.MakeKey(rec.Name, rec.Namespace).String()
	}
	return info, nil
}
