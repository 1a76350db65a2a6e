// Package store provides persistence for message transcripts and action
// audit records. Conversation state is deliberately not persisted; only
// history is. Three drivers are available: SQLite (modernc.org/sqlite,
// pure Go), PostgreSQL (lib/pq), and a no-op store for running without a
// database.
package store
