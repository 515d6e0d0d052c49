package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/flemzord/sessiond/internal/genai"
)

// ManagerConfig holds the session-level knobs.
type ManagerConfig struct {
	// SystemPrompt is the system instruction for normal chat calls.
	SystemPrompt string

	// AllowClientSystemPrompt permits a per-request system prompt
	// override. When false, a request carrying one is rejected.
	AllowClientSystemPrompt bool

	// HistoryMaxMessages is the retention cap applied to the message
	// log after each chat.
	HistoryMaxMessages int

	// HistoryDefaultLimit is the page size used when a history request
	// does not specify one.
	HistoryDefaultLimit int
}

// withDefaults returns a copy of cfg with zero-valued fields replaced.
func (cfg ManagerConfig) withDefaults() ManagerConfig {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "You are a helpful assistant."
	}
	if cfg.HistoryMaxMessages <= 0 {
		cfg.HistoryMaxMessages = 500
	}
	if cfg.HistoryDefaultLimit <= 0 {
		cfg.HistoryDefaultLimit = 120
	}
	return cfg
}

// ChatResult is the outcome of a chat call.
type ChatResult struct {
	Text      string
	Compacted bool
}

// HistoryResult is the outcome of a history call: the rolling summary,
// one page of logged turns (oldest-to-newest), and session metadata.
type HistoryResult struct {
	Summary string
	Turns   []Turn
	Entry   IndexEntry
}

// Manager is the single logical owner of every session's state. It
// serializes same-session operations through a per-session lane while
// different sessions proceed in parallel, and it is the only writer of
// rolling state, message log, and index rows.
type Manager struct {
	log       MessageLog
	states    StateStore
	index     Index
	generator genai.Generator
	compactor *Compactor
	lanes     *laneLock
	logger    *slog.Logger
	config    ManagerConfig
}

// NewManager wires the session core. All collaborators are required
// except logger, which defaults to slog.Default().
func NewManager(log MessageLog, states StateStore, index Index, generator genai.Generator, compactor *Compactor, cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		log:       log,
		states:    states,
		index:     index,
		generator: generator,
		compactor: compactor,
		lanes:     newLaneLock(),
		logger:    logger,
		config:    cfg.withDefaults(),
	}
}

// Create registers a brand-new session and returns its identifier.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := m.Init(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// Init ensures the session exists. Idempotent: re-registering keeps the
// original creation time and only refreshes last access.
func (m *Manager) Init(ctx context.Context, sessionID string) error {
	m.lanes.acquire(sessionID)
	defer m.lanes.release(sessionID)

	if err := m.index.Register(ctx, sessionID); err != nil {
		return fmt.Errorf("session: register %s: %w", sessionID, err)
	}
	return nil
}

// Reset clears the rolling context and, when full is set, the message
// log. The session identity and index entry persist with a refreshed
// last-access time.
func (m *Manager) Reset(ctx context.Context, sessionID string, full bool) error {
	m.lanes.acquire(sessionID)
	defer m.lanes.release(sessionID)

	if err := m.requireSession(ctx, sessionID); err != nil {
		return err
	}

	if err := m.states.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("session: reset state %s: %w", sessionID, err)
	}
	if full {
		if err := m.log.Clear(ctx, sessionID); err != nil {
			return fmt.Errorf("session: reset log %s: %w", sessionID, err)
		}
	}
	return m.index.Touch(ctx, sessionID)
}

// Destroy removes all state for the session: rolling context, message
// log, and index entry. Used by the expiry sweeper, never by
// user-facing paths. Idempotent.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	m.lanes.acquire(sessionID)
	defer m.lanes.release(sessionID)

	if err := m.states.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("session: destroy state %s: %w", sessionID, err)
	}
	if err := m.log.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("session: destroy log %s: %w", sessionID, err)
	}
	if err := m.index.Remove(ctx, sessionID); err != nil {
		return fmt.Errorf("session: destroy index %s: %w", sessionID, err)
	}
	return nil
}

// History returns the current summary, one page of logged turns, and
// session metadata. Paging backward is restartable: pass the smallest
// position seen as before on the next call.
func (m *Manager) History(ctx context.Context, sessionID string, limit int, before int64) (HistoryResult, error) {
	m.lanes.acquire(sessionID)
	defer m.lanes.release(sessionID)

	entry, ok, err := m.index.Get(ctx, sessionID)
	if err != nil {
		return HistoryResult{}, fmt.Errorf("session: history %s: %w", sessionID, err)
	}
	if !ok {
		return HistoryResult{}, ErrNotFound
	}

	if limit <= 0 {
		limit = m.config.HistoryDefaultLimit
	}

	state, err := m.states.Get(ctx, sessionID)
	if err != nil {
		return HistoryResult{}, fmt.Errorf("session: history state %s: %w", sessionID, err)
	}

	turns, err := m.log.Page(ctx, sessionID, limit, before)
	if err != nil {
		return HistoryResult{}, fmt.Errorf("session: history page %s: %w", sessionID, err)
	}

	if err := m.index.Touch(ctx, sessionID); err != nil {
		return HistoryResult{}, fmt.Errorf("session: history touch %s: %w", sessionID, err)
	}

	return HistoryResult{
		Summary: state.Summary,
		Turns:   turns,
		Entry:   entry,
	}, nil
}

// Chat appends the user turn, calls the generation backend with the
// rolling prompt view, appends the assistant reply, evaluates
// compaction, prunes the log, and refreshes the index entry.
//
// Failure semantics: a validation error leaves all state untouched.
// A backend error leaves the user turn in the durable log but commits
// no assistant turn and no rolling-state change. A compaction failure
// keeps both logged turns and the pre-compaction rolling state.
func (m *Manager) Chat(ctx context.Context, sessionID, message, systemPrompt string) (ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResult{}, ErrEmptyMessage
	}
	if systemPrompt != "" && !m.config.AllowClientSystemPrompt {
		return ChatResult{}, ErrSystemPromptRejected
	}
	if systemPrompt == "" {
		systemPrompt = m.config.SystemPrompt
	}

	m.lanes.acquire(sessionID)
	defer m.lanes.release(sessionID)

	if err := m.requireSession(ctx, sessionID); err != nil {
		return ChatResult{}, err
	}

	state, err := m.states.Get(ctx, sessionID)
	if err != nil {
		return ChatResult{}, fmt.Errorf("session: chat state %s: %w", sessionID, err)
	}

	if _, err := m.log.Append(ctx, sessionID, RoleUser, message); err != nil {
		return ChatResult{}, fmt.Errorf("session: chat log user %s: %w", sessionID, err)
	}
	state.Append(RoleUser, message)

	reply, err := m.generator.Generate(ctx, genai.Request{
		SystemInstruction: systemPrompt,
		Contents:          state.PromptView(),
		UseRetrieval:      true,
	})
	if err != nil {
		return ChatResult{}, err
	}

	if _, err := m.log.Append(ctx, sessionID, RoleAssistant, reply); err != nil {
		return ChatResult{}, fmt.Errorf("session: chat log assistant %s: %w", sessionID, err)
	}
	state.Append(RoleAssistant, reply)

	if err := m.states.Put(ctx, sessionID, state); err != nil {
		return ChatResult{}, fmt.Errorf("session: chat persist state %s: %w", sessionID, err)
	}

	compacted := false
	if m.compactor != nil && m.compactor.ShouldCompact(state) {
		next, err := m.compactor.Compact(ctx, state)
		if err != nil {
			// All-or-nothing: the persisted state keeps the full tail;
			// both turns stay in the log.
			return ChatResult{}, err
		}
		if err := m.states.Put(ctx, sessionID, next); err != nil {
			return ChatResult{}, fmt.Errorf("session: chat persist compacted state %s: %w", sessionID, err)
		}
		compacted = true
		m.logger.Info("session: compacted rolling context",
			"session", sessionID,
			"tail", len(next.Tail),
		)
	}

	if err := m.log.Prune(ctx, sessionID, m.config.HistoryMaxMessages); err != nil {
		return ChatResult{}, fmt.Errorf("session: chat prune %s: %w", sessionID, err)
	}

	if err := m.index.Touch(ctx, sessionID); err != nil {
		return ChatResult{}, fmt.Errorf("session: chat touch %s: %w", sessionID, err)
	}

	return ChatResult{Text: reply, Compacted: compacted}, nil
}

// ActiveSessions returns the number of registered sessions.
func (m *Manager) ActiveSessions(ctx context.Context) (int, error) {
	return m.index.Count(ctx)
}

// requireSession maps a missing index entry to ErrNotFound.
func (m *Manager) requireSession(ctx context.Context, sessionID string) error {
	_, ok, err := m.index.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session: lookup %s: %w", sessionID, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
