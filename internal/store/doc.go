// Package store provides the SQLite capture log for roamwatch sessions.
//
// A session is one monitor run. While it is active the Recorder appends
// every bus delivery and every outcome the engine emits:
//   - Sessions: one row per monitor run (UUIDv7 id, adapter, start time)
//   - Notifications: decoded events keyed by (session_id, seq)
//   - Outcomes: classified roams and reconnects keyed by the seq of the
//     notification that completed them
//
// # Ordering
//
// All reads order by seq, the bus logical clock, never by wall time. A gap
// in seq is a notification the recorder missed; the row after the gap
// carries the missed count.
//
// # Payloads
//
// Notification payloads are canonical JSON (sorted keys, NFC strings) so two
// captures of the same trace are byte-identical and can be diffed.
//
// The log is for offline replay and debugging only. Correlation state is
// never restored from it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
