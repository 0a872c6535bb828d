// Package value provides the wire-level value model for kvserde.
//
// Every value that crosses the codec boundary is first turned into a Node,
// a closed tagged union of the kinds the engine can represent. This package
// contains the node types, their canonical text form, and the strict parser
// that turns text back into nodes. It imports nothing internal; the codec,
// registry and envelope packages are all layered on top of it.
//
// Key design constraints:
//   - Output is deterministic: record fields are sorted by UTF-16 code units
//     and set elements by their own canonical text
//   - No HTML escaping in strings
//   - Primitive kinds (null, bool, int, float, text) are bare JSON; every
//     other node is an object tagged with "_type"
//   - A node carrying "_namespace" is always a record
package value
