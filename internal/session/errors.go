package session

import "errors"

// Sentinel errors surfaced to the boundary layer.
var (
	// ErrEmptyMessage indicates a chat request with no user text.
	// Rejected before any state mutation.
	ErrEmptyMessage = errors.New("session: empty message")

	// ErrNotFound indicates an operation against a session id that was
	// never registered or has already been destroyed.
	ErrNotFound = errors.New("session: not found")

	// ErrSystemPromptRejected indicates a caller-supplied system prompt
	// while the deployment does not allow one.
	ErrSystemPromptRejected = errors.New("session: client system prompt not allowed")
)
