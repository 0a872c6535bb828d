// Package codec converts between Go values and value.Node trees.
//
// Encoding tries, in order: registered or self-describing record types
// (schema kind, then custom kind), built-in scalars (bool, integers, floats,
// strings, []byte, time.Time, time.Duration, uuid.UUID, *big.Int), tuples
// (Tuple and Go arrays), sets (Set and map[K]struct{}), sequences (slices and
// List) and mappings (*Map and other Go maps). Anything else fails with
// UnsupportedTypeError.
//
// Encoding is bounded: nesting deeper than the configured maximum, or a
// pointer, map or slice that contains itself, fails with CyclicValueError.
//
// Decoding is the structural inverse. Records are resolved through the
// registry the Codec was built with; an unregistered record fails with
// registry.UnknownTypeError.
package codec
