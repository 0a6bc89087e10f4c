// Package recorder persists live console updates for session replay.
// Updates are queued off the hot path, batched, and written to the
// session_events table with pgx batch inserts.
package recorder
