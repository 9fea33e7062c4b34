// Package queue persists folder-processing jobs in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-job recovery, and status transitions.
// Jobs capture an immutable file snapshot at enqueue time plus per-file
// outcomes recorded during processing, so workers can coordinate without
// additional state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or job fields, update schema.sql and bump schemaVersion.
package queue
