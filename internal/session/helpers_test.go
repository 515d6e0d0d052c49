package session_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/sessiond/internal/genai"
	"github.com/flemzord/sessiond/internal/session"
)

// fakeGenerator implements genai.Generator for tests. It records every
// request and returns scripted replies in order, falling back to reply.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []genai.Request
	replies  []string
	reply    string
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, req genai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) > 0 {
		next := f.replies[0]
		f.replies = f.replies[1:]
		return next, nil
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return fmt.Sprintf("reply-%d", len(f.requests)), nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGenerator) lastRequest() genai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// memLog is an in-memory session.MessageLog.
type memLog struct {
	mu    sync.Mutex
	next  map[string]int64
	turns map[string][]session.Turn
	err   error
}

func newMemLog() *memLog {
	return &memLog{
		next:  make(map[string]int64),
		turns: make(map[string][]session.Turn),
	}
}

func (l *memLog) Append(_ context.Context, id string, role session.Role, text string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	l.next[id]++
	pos := l.next[id]
	l.turns[id] = append(l.turns[id], session.Turn{Position: pos, Role: role, Text: text})
	return pos, nil
}

func (l *memLog) Page(_ context.Context, id string, limit int, before int64) ([]session.Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 {
		limit = 1
	}
	var out []session.Turn
	for _, t := range l.turns[id] {
		if before > 0 && t.Position >= before {
			continue
		}
		out = append(out, t)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return slices.Clone(out), nil
}

func (l *memLog) Prune(_ context.Context, id string, maxRows int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxRows <= 0 {
		return nil
	}
	if turns := l.turns[id]; len(turns) > maxRows {
		l.turns[id] = slices.Clone(turns[len(turns)-maxRows:])
	}
	return nil
}

func (l *memLog) Clear(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.turns, id)
	return nil
}

func (l *memLog) Count(_ context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns[id]), nil
}

// memStates is an in-memory session.StateStore.
type memStates struct {
	mu     sync.Mutex
	states map[string]session.State
}

func newMemStates() *memStates {
	return &memStates{states: make(map[string]session.State)}
}

func (s *memStates) Get(_ context.Context, id string) (session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[id]
	state.Tail = slices.Clone(state.Tail)
	return state, nil
}

func (s *memStates) Put(_ context.Context, id string, state session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Tail = slices.Clone(state.Tail)
	s.states[id] = state
	return nil
}

func (s *memStates) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	return nil
}

// memIndex is an in-memory session.Index with an injectable clock.
type memIndex struct {
	mu      sync.Mutex
	entries map[string]session.IndexEntry
	now     func() time.Time
}

func newMemIndex() *memIndex {
	return &memIndex{
		entries: make(map[string]session.IndexEntry),
		now:     time.Now,
	}
}

func (ix *memIndex) Register(_ context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	now := ix.now()
	if entry, ok := ix.entries[id]; ok {
		entry.LastAccessAt = now
		ix.entries[id] = entry
		return nil
	}
	ix.entries[id] = session.IndexEntry{ID: id, CreatedAt: now, LastAccessAt: now}
	return nil
}

func (ix *memIndex) Touch(_ context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if entry, ok := ix.entries[id]; ok {
		entry.LastAccessAt = ix.now()
		ix.entries[id] = entry
	}
	return nil
}

func (ix *memIndex) Remove(_ context.Context, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, id)
	return nil
}

func (ix *memIndex) Get(_ context.Context, id string) (session.IndexEntry, bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entry, ok := ix.entries[id]
	return entry, ok, nil
}

func (ix *memIndex) FindExpired(_ context.Context, cutoff time.Time, limit int) ([]session.IndexEntry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if limit <= 0 {
		limit = 200
	}
	var out []session.IndexEntry
	for _, entry := range ix.entries {
		if entry.LastAccessAt.Before(cutoff) {
			out = append(out, entry)
		}
	}
	slices.SortFunc(out, func(a, b session.IndexEntry) int {
		return a.LastAccessAt.Compare(b.LastAccessAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (ix *memIndex) Count(_ context.Context) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries), nil
}

// makeTurns creates n alternating user/assistant turns.
func makeTurns(n int) []session.Turn {
	turns := make([]session.Turn, n)
	for i := range turns {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		turns[i] = session.Turn{Role: role, Text: fmt.Sprintf("turn-%d", i)}
	}
	return turns
}
