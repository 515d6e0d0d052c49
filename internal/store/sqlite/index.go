package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/sessiond/internal/session"
)

// defaultExpiredBatch is used when FindExpired is called with a
// non-positive limit.
const defaultExpiredBatch = 200

// Index returns the session index accessor.
func (s *Store) Index() session.Index {
	return &sessionIndex{db: s.db, now: s.now}
}

type sessionIndex struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time interface check.
var _ session.Index = (*sessionIndex)(nil)

// Register upserts the entry. The upsert keeps the original created_at
// on conflict, so re-registering is idempotent with respect to
// creation time.
func (ix *sessionIndex) Register(ctx context.Context, sessionID string) error {
	now := ix.now().UnixMilli()
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, last_access_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_access_at = excluded.last_access_at`,
		sessionID, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: register session: %w", err)
	}
	return nil
}

// Touch refreshes last_access_at. A missing entry (already expired) is
// not an error.
func (ix *sessionIndex) Touch(ctx context.Context, sessionID string) error {
	_, err := ix.db.ExecContext(ctx,
		"UPDATE sessions SET last_access_at = ? WHERE session_id = ?",
		ix.now().UnixMilli(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touch session: %w", err)
	}
	return nil
}

// Remove deletes the entry. Idempotent.
func (ix *sessionIndex) Remove(ctx context.Context, sessionID string) error {
	if _, err := ix.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("sqlite: remove session: %w", err)
	}
	return nil
}

// Get returns the entry and whether it exists.
func (ix *sessionIndex) Get(ctx context.Context, sessionID string) (session.IndexEntry, bool, error) {
	var createdAt, lastAccessAt int64
	err := ix.db.QueryRowContext(ctx,
		"SELECT created_at, last_access_at FROM sessions WHERE session_id = ?", sessionID,
	).Scan(&createdAt, &lastAccessAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.IndexEntry{}, false, nil
		}
		return session.IndexEntry{}, false, fmt.Errorf("sqlite: get session: %w", err)
	}
	return session.IndexEntry{
		ID:           sessionID,
		CreatedAt:    time.UnixMilli(createdAt),
		LastAccessAt: time.UnixMilli(lastAccessAt),
	}, true, nil
}

// FindExpired returns up to limit entries idle past cutoff, oldest
// first. The limit is clamped to [1, maxExpiredBatch]; non-positive
// values fall back to the default batch size.
func (ix *sessionIndex) FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]session.IndexEntry, error) {
	if limit <= 0 {
		limit = defaultExpiredBatch
	}
	if limit > maxExpiredBatch {
		limit = maxExpiredBatch
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT session_id, created_at, last_access_at
		FROM sessions
		WHERE last_access_at < ?
		ORDER BY last_access_at ASC
		LIMIT ?`,
		cutoff.UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find expired: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []session.IndexEntry
	for rows.Next() {
		var (
			entry                 session.IndexEntry
			createdAt, lastAccess int64
		)
		if err := rows.Scan(&entry.ID, &createdAt, &lastAccess); err != nil {
			return nil, fmt.Errorf("sqlite: scan expired: %w", err)
		}
		entry.CreatedAt = time.UnixMilli(createdAt)
		entry.LastAccessAt = time.UnixMilli(lastAccess)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: expired rows: %w", err)
	}
	return entries, nil
}

// Count returns the number of registered sessions.
func (ix *sessionIndex) Count(ctx context.Context) (int, error) {
	var count int
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: count sessions: %w", err)
	}
	return count, nil
}
