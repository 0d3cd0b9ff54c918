// Package store provides SQLite-backed history of finished playback runs.
//
// Each run is written once, when it ends, as:
//   - Runs: script name, content hash, start action, times, end reason
//   - Trace ticks: one sample per tick since run start
//   - Puzzle clicks: at most one per tick
//   - Puzzle unlocks: in the order they happened
//
// # Ordering
//
// Runs are listed by seq INTEGER (insertion order), never by timestamps.
// Trace ticks are keyed by their tick offset so a window of the trace can be
// read with the same First/Last/Between semantics the live overlay uses.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a run cascades to its rows
package store
