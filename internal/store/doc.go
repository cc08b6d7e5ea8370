// Package store provides a SQLite-backed firing journal for junctions.
//
// A Store implements junction.Recorder. Every firing becomes one row in
// firings plus one row per pattern member in firing_members:
//   - firings: junction id, firing seq, pattern index, trigger channel
//   - firing_members: member channel ids in construction order with the
//     rendered payload ("" for receive members)
//
// The journal is an audit trail. Pending messages are never persisted, so a
// journal cannot be used to resume a junction.
//
// # Ordering
//
// All reads order by seq (the junction's logical firing clock), never by
// wall time, so two runs of a deterministic scenario produce identical
// journals.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Members must reference a recorded firing
package store
