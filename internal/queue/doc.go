// Package queue persists analysis jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-job recovery, and the status
// transitions the workflow manager relies on. Jobs capture progress, stage
// artifacts, and aggregated results so stages can coordinate without extra
// state.
//
// The database is transient storage for in-flight jobs, not an archive.
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
