// Package sqlite persists session state in a single SQLite database:
// the append-only message log, the rolling-context record, and the
// session index used by the expiry sweep.
package sqlite

import (
	"database/sql"
	"time"
)

// defaultBusyTimeout is the SQLite busy_timeout in milliseconds.
const defaultBusyTimeout = 5000

// maxPageSize bounds a single history page. Larger requests are
// clamped silently.
const maxPageSize = 500

// maxExpiredBatch bounds one FindExpired batch. Requests outside
// [1, maxExpiredBatch] are clamped silently.
const maxExpiredBatch = 1000

// Store bundles the three per-database accessors. All methods are safe
// for concurrent use; SQLite serialises writes behind a single
// connection.
type Store struct {
	db *sql.DB

	// now is injectable for deterministic index tests.
	now func() time.Time
}

// DB exposes the underlying handle for ops tooling and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
