// Package registry is the runtime directory of user-defined record types.
//
// Each entry maps a (name, namespace) pair to the functions that convert an
// instance to and from its field map. Two kinds of types are supported:
//
//   - Custom: the type's pointer implements Representer and Unrepresenter,
//     and the engine calls those methods instead of inspecting fields.
//   - Schema: a struct whose field schema (see package schema) is used to
//     flatten it and to validate and construct it on decode.
//
// Thread-safety model:
//   - Register, RegisterMany and Ensure take the write lock
//   - Resolve and Entries take the read lock
//   - Lookup reads a lock-free per-type cache that is only written under
//     the write lock, so a Lookup that happens after a Register observes it
//
// Entries are never removed. Re-registering a (name, namespace) pair replaces
// the previous entry; collisions between unrelated types are a caller error
// and are not detected.
package registry
