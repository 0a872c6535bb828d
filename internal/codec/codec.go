package codec

import (
	"github.com/roach88/kvserde/internal/registry"
	"github.com/roach88/kvserde/internal/value"
)

// DefaultMaxDepth is the nesting limit used when none is configured.
const DefaultMaxDepth = 512

// Codec converts Go values to and from value.Node trees using one registry.
// A Codec is safe for concurrent use.
type Codec struct {
	reg      *registry.Registry
	maxDepth int
}

// Option configures a Codec.
type Option func(*Codec)

// WithMaxDepth sets the nesting limit for encoding. Values below 1 are
// ignored.
func WithMaxDepth(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// New returns a Codec that resolves records through reg. A nil reg means
// registry.Default().
func New(reg *registry.Registry, opts ...Option) *Codec {
	if reg == nil {
		reg = registry.Default()
	}
	c := &Codec{reg: reg, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry c resolves records through.
func (c *Codec) Registry() *registry.Registry {
	return c.reg
}

// MaxDepth returns the configured nesting limit.
func (c *Codec) MaxDepth() int {
	return c.maxDepth
}

// ToNode converts v into a value tree. Unregistered record types that
// describe themselves (see registry.Describe) are registered as a side
// effect.
func (c *Codec) ToNode(v any) (value.Node, error) {
	e := &encoder{c: c, seen: make(map[visit]struct{})}
	return e.encode(v, 0)
}

// FromNode converts a value tree back into Go values.
func (c *Codec) FromNode(n value.Node) (any, error) {
	return c.decode(n)
}
