package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flemzord/sessiond/internal/session"
)

// StateStore returns the rolling-context record accessor.
func (s *Store) StateStore() session.StateStore {
	return &stateStore{db: s.db}
}

type stateStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ session.StateStore = (*stateStore)(nil)

// Get returns the stored rolling state, or a zero State if none exists.
func (st *stateStore) Get(ctx context.Context, sessionID string) (session.State, error) {
	var (
		state    session.State
		tailJSON string
	)
	err := st.db.QueryRowContext(ctx, `
		SELECT summary, tail, turns_since
		FROM session_state
		WHERE session_id = ?`,
		sessionID,
	).Scan(&state.Summary, &tailJSON, &state.TurnsSinceCompaction)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.State{}, nil
		}
		return session.State{}, fmt.Errorf("sqlite: get state: %w", err)
	}

	if tailJSON != "" && tailJSON != "[]" {
		if err := json.Unmarshal([]byte(tailJSON), &state.Tail); err != nil {
			return session.State{}, fmt.Errorf("sqlite: unmarshal tail: %w", err)
		}
	}
	return state, nil
}

// Put stores the rolling state, replacing any previous record.
func (st *stateStore) Put(ctx context.Context, sessionID string, state session.State) error {
	tailJSON := []byte("[]")
	if len(state.Tail) > 0 {
		var err error
		tailJSON, err = json.Marshal(state.Tail)
		if err != nil {
			return fmt.Errorf("sqlite: marshal tail: %w", err)
		}
	}

	_, err := st.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO session_state (session_id, summary, tail, turns_since, updated_at)
		VALUES (?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))`,
		sessionID, state.Summary, string(tailJSON), state.TurnsSinceCompaction,
	)
	if err != nil {
		return fmt.Errorf("sqlite: put state: %w", err)
	}
	return nil
}

// Delete removes the rolling state record. Idempotent.
func (st *stateStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := st.db.ExecContext(ctx, "DELETE FROM session_state WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("sqlite: delete state: %w", err)
	}
	return nil
}
