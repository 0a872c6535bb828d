// Package store holds encoded payloads under raw keys.
//
// Two backends implement Backend:
//   - Store: SQLite, durable, one row per key
//   - Memory: an in-process concurrent map for tests and ephemeral use
//
// Backends treat payloads as opaque bytes; they never decode them.
//
// # Ordering
//
// Every write to Store takes the next value of a logical sequence (seq),
// never a wall-clock timestamp. Keys returns keys in binary order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
