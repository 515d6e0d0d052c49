package session

import (
	"context"
	"time"
)

// MessageLog is the append-only durable record of every turn in a
// session. Implementations must be safe for concurrent use across
// sessions; same-session calls are serialized by the Manager.
type MessageLog interface {
	// Append stores a turn and returns its position. Positions within a
	// session are strictly increasing but not gap-free (pruning deletes
	// old rows).
	Append(ctx context.Context, sessionID string, role Role, text string) (int64, error)

	// Page returns at most limit turns oldest-to-newest, all with
	// position strictly less than before when before > 0, else the most
	// recent limit turns. The limit is clamped silently to the
	// implementation's maximum.
	Page(ctx context.Context, sessionID string, limit int, before int64) ([]Turn, error)

	// Prune deletes all but the most recent maxRows turns.
	Prune(ctx context.Context, sessionID string, maxRows int) error

	// Clear deletes every turn for the session. Idempotent.
	Clear(ctx context.Context, sessionID string) error

	// Count returns the number of stored turns for the session.
	Count(ctx context.Context, sessionID string) (int, error)
}

// StateStore persists the rolling context of a session as a single
// typed record.
type StateStore interface {
	// Get returns the stored state, or a zero State if none exists.
	Get(ctx context.Context, sessionID string) (State, error)

	// Put stores the state, replacing any previous record.
	Put(ctx context.Context, sessionID string, state State) error

	// Delete removes the state record. Idempotent.
	Delete(ctx context.Context, sessionID string) error
}

// IndexEntry is one row of the session index.
type IndexEntry struct {
	ID           string
	CreatedAt    time.Time
	LastAccessAt time.Time
}

// Index is the shared registry of known sessions, used by the expiry
// sweep to find idle sessions without scanning per-session state.
// Individual operations are atomic; cross-session calls are independent.
type Index interface {
	// Register upserts an entry. A fresh entry gets
	// createdAt = lastAccessAt = now; an existing entry keeps its
	// createdAt and only refreshes lastAccessAt.
	Register(ctx context.Context, sessionID string) error

	// Touch refreshes lastAccessAt. No-op when the entry is absent.
	Touch(ctx context.Context, sessionID string) error

	// Remove deletes the entry. Idempotent.
	Remove(ctx context.Context, sessionID string) error

	// Get returns the entry and whether it exists.
	Get(ctx context.Context, sessionID string) (IndexEntry, bool, error)

	// FindExpired returns up to limit entries with lastAccessAt before
	// cutoff, ascending by lastAccessAt. The limit is clamped to the
	// implementation's bounds; a sweep tick never sees an unbounded
	// batch.
	FindExpired(ctx context.Context, cutoff time.Time, limit int) ([]IndexEntry, error)

	// Count returns the number of registered sessions.
	Count(ctx context.Context) (int, error)
}
