// Package database provides the PostgreSQL connection pool for session
// recording. The console itself keeps no relational state; the pool
// exists only when the recorder is enabled.
package database
