// Package store persists learned source-to-target mappings and the
// append-only mapping audit trail.
//
// Two backends are provided: an in-process MemoryStore and a SQLStore
// that speaks either SQLite (modernc.org/sqlite) or PostgreSQL
// (github.com/lib/pq). Both are safe for concurrent use by many
// orchestration runs.
package store
