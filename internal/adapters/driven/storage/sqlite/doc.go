// Package sqlite provides SQLite-backed implementations of the
// metadata store interfaces. A single database file holds passages,
// per-file indexing status, session history, saved passages, and usage
// events, with schema changes applied through embedded migrations.
package sqlite
