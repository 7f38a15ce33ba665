// Package store provides SQLite-backed durable storage for the engine
// journal.
//
// The journal is append-only and keyed by (session, seq):
//   - Connection events: peer attach and detach
//   - Command events: submission, dispatch and completion of commands
//   - Delivery events: snapshot versions acknowledged by peers
//
// # Ordering
//
// All ordering uses the engine's logical seq, never timestamps. Every read
// query ends with ORDER BY seq ASC so that traces compare byte for byte.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// *Store satisfies engine.Journal.
package store
