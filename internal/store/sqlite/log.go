package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/flemzord/sessiond/internal/session"
)

// MessageLog returns the append-only message log accessor.
func (s *Store) MessageLog() session.MessageLog {
	return &messageLog{db: s.db}
}

type messageLog struct {
	db *sql.DB
}

// Compile-time interface check.
var _ session.MessageLog = (*messageLog)(nil)

// Append stores a turn under the next per-session position. Positions
// are strictly increasing; pruning may later leave gaps, so callers
// treat them as opaque cursors.
func (l *messageLog) Append(ctx context.Context, sessionID string, role session.Role, text string) (int64, error) {
	row := l.db.QueryRowContext(ctx, `
		INSERT INTO messages (session_id, pos, role, content)
		VALUES (?, COALESCE((SELECT MAX(pos) FROM messages WHERE session_id = ?), 0) + 1, ?, ?)
		RETURNING pos`,
		sessionID, sessionID, string(role), text,
	)

	var pos int64
	if err := row.Scan(&pos); err != nil {
		return 0, fmt.Errorf("sqlite: append message: %w", err)
	}
	return pos, nil
}

// Page returns at most limit turns oldest-to-newest with position
// strictly below before (when before > 0). The limit is clamped to
// [1, maxPageSize], never an error.
func (l *messageLog) Page(ctx context.Context, sessionID string, limit int, before int64) ([]session.Turn, error) {
	if limit <= 0 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	query := `
		SELECT pos, role, content, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY pos DESC
		LIMIT ?`
	args := []any{sessionID, limit}

	if before > 0 {
		query = `
		SELECT pos, role, content, created_at
		FROM messages
		WHERE session_id = ? AND pos < ?
		ORDER BY pos DESC
		LIMIT ?`
		args = []any{sessionID, before, limit}
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: page messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []session.Turn
	for rows.Next() {
		var (
			turn      session.Turn
			role      string
			createdAt string
		)
		if err := rows.Scan(&turn.Position, &role, &turn.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		turn.Role = session.Role(role)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			turn.CreatedAt = ts
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: page rows: %w", err)
	}

	// Reverse to chronological order.
	slices.Reverse(turns)
	return turns, nil
}

// Prune deletes all but the most recent maxRows turns.
func (l *messageLog) Prune(ctx context.Context, sessionID string, maxRows int) error {
	if maxRows <= 0 {
		return nil
	}

	// The subquery finds the newest position that falls outside the
	// retention window; everything at or below it goes.
	_, err := l.db.ExecContext(ctx, `
		DELETE FROM messages
		WHERE session_id = ?
		  AND pos <= COALESCE(
			(SELECT pos FROM messages WHERE session_id = ?
			 ORDER BY pos DESC LIMIT 1 OFFSET ?), 0)`,
		sessionID, sessionID, maxRows,
	)
	if err != nil {
		return fmt.Errorf("sqlite: prune messages: %w", err)
	}
	return nil
}

// Clear deletes every turn for the session. Idempotent.
func (l *messageLog) Clear(ctx context.Context, sessionID string) error {
	if _, err := l.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("sqlite: clear messages: %w", err)
	}
	return nil
}

// Count returns the number of stored turns for the session.
func (l *messageLog) Count(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return count, nil
}
