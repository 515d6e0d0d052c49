// Package session implements the per-session state machine: the rolling
// context (summary + verbatim tail), its compaction policy, and the
// manager that serializes all operations for one session while keeping
// sessions independent of each other.
package session

import (
	"time"

	"github.com/flemzord/sessiond/internal/genai"
)

// Role identifies the author of a turn.
type Role string

// Role constants for conversation turns.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known constants.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// contentRole maps a turn role onto the generation backend's role tags.
func (r Role) contentRole() genai.ContentRole {
	if r == RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Turn is one immutable message within a session. Position is assigned
// by the message log and is an opaque cursor: strictly increasing, but
// not gap-free after pruning.
type Turn struct {
	Position  int64     `json:"position,omitempty"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// summaryPreamble labels the synthetic background block carrying the
// rolling summary when it is handed to the generation backend.
const summaryPreamble = "Background (rolling conversation summary):\n"

// State is the mutable rolling context of one session. The tail holds
// turns appended since the last compaction plus the retention window the
// last compaction kept; Summary is empty until the first compaction.
type State struct {
	Summary              string `json:"summary"`
	Tail                 []Turn `json:"tail"`
	TurnsSinceCompaction int    `json:"turns_since_compaction"`
}

// Append adds a turn to the tail and counts it toward compaction.
func (s *State) Append(role Role, text string) {
	s.Tail = append(s.Tail, Turn{Role: role, Text: text})
	s.TurnsSinceCompaction++
}

// PromptView builds the exact payload handed to the generation backend:
// one synthetic user-role block with the summary when present, then every
// tail turn in order.
func (s *State) PromptView() []genai.Content {
	contents := make([]genai.Content, 0, len(s.Tail)+1)
	if s.Summary != "" {
		contents = append(contents, genai.Content{
			Role: genai.RoleUser,
			Text: summaryPreamble + s.Summary,
		})
	}
	for _, t := range s.Tail {
		contents = append(contents, genai.Content{
			Role: t.Role.contentRole(),
			Text: t.Text,
		})
	}
	return contents
}

// clone returns a deep copy so compaction can work on a scratch State
// without touching the caller's.
func (s State) clone() State {
	out := s
	out.Tail = make([]Turn, len(s.Tail))
	copy(out.Tail, s.Tail)
	return out
}
