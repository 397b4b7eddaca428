// Package store provides SQLite-backed recording of engine sessions.
//
// A session row holds the parameters a run was made with (table hash,
// tapping term, settle delay, versions). Every trace entry the engine
// emits is appended to trace_entries under a content-addressed ID, so
// writing the same entry twice is a no-op.
//
// # Ordering
//
// Queries order by seq ASC, id COLLATE BINARY ASC. seq is the engine's
// logical clock; firmware timestamps wrap and are never used as a key.
//
// # Connection
//
// A Store holds one connection in WAL mode with foreign keys enforced and
// a five second busy timeout, so the sessions and trace commands can read
// a file a running recorder still writes. The schema version lives in
// PRAGMA user_version.
package store
