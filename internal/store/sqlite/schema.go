package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT    NOT NULL,
		pos        INTEGER NOT NULL,
		role       TEXT    NOT NULL,
		content    TEXT    NOT NULL DEFAULT '',
		created_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		PRIMARY KEY (session_id, pos)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, pos)`,

	`CREATE TABLE IF NOT EXISTS session_state (
		session_id  TEXT PRIMARY KEY,
		summary     TEXT    NOT NULL DEFAULT '',
		tail        TEXT    NOT NULL DEFAULT '[]',
		turns_since INTEGER NOT NULL DEFAULT 0,
		updated_at  TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		session_id     TEXT    NOT NULL PRIMARY KEY,
		created_at     INTEGER NOT NULL,
		last_access_at INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_last_access ON sessions(last_access_at)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
