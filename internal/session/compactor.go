package session

import (
	"context"
	"fmt"

	"github.com/flemzord/sessiond/internal/genai"
)

// Summarization prompts. The instruction is fixed: compaction never
// invokes retrieval and never varies per request.
const (
	summarizeSystemInstruction = "You condense conversations faithfully and concisely."

	summarizeInstruction = "Produce an operative, faithful summary of the conversation: " +
		"decisions and constraints, canonical facts introduced, and open requests. " +
		"Keep it under 15 lines."
)

// CompactorConfig holds the compaction policy knobs.
type CompactorConfig struct {
	// TriggerTurns is the number of appended turns after which
	// compaction fires.
	TriggerTurns int

	// KeepLastTurns is the number of most-recent turns kept verbatim
	// when compaction fires.
	KeepLastTurns int

	// SummaryModel overrides the generation target for summarization.
	// Empty means the backend's chat model.
	SummaryModel string
}

// withDefaults returns a copy of cfg with zero-valued fields replaced.
func (cfg CompactorConfig) withDefaults() CompactorConfig {
	if cfg.TriggerTurns <= 0 {
		cfg.TriggerTurns = 18
	}
	if cfg.KeepLastTurns <= 0 {
		cfg.KeepLastTurns = 8
	}
	return cfg
}

// Compactor folds old tail turns into the rolling summary so prompt
// size stays roughly constant regardless of conversation length.
// Discarded turns are summarized, never dropped; full fidelity remains
// in the MessageLog.
type Compactor struct {
	generator genai.Generator
	config    CompactorConfig
}

// NewCompactor creates a Compactor calling the given generator for
// summaries.
func NewCompactor(generator genai.Generator, cfg CompactorConfig) *Compactor {
	return &Compactor{
		generator: generator,
		config:    cfg.withDefaults(),
	}
}

// ShouldCompact reports whether the state crosses the compaction
// thresholds. Both conditions guard independently against compacting
// near-empty tails.
func (c *Compactor) ShouldCompact(state State) bool {
	return state.TurnsSinceCompaction >= c.config.TriggerTurns &&
		len(state.Tail) > c.config.KeepLastTurns
}

// Compact summarizes everything but the KeepLastTurns most recent tail
// turns and returns the new state. The input state is never mutated:
// on failure the caller's summary, tail, and counter are exactly as
// they were before the attempt.
func (c *Compactor) Compact(ctx context.Context, state State) (State, error) {
	keep := c.config.KeepLastTurns
	if len(state.Tail) <= keep {
		return state.clone(), nil
	}

	scratch := state.clone()
	toSummarize := scratch.Tail[:len(scratch.Tail)-keep]
	remaining := scratch.Tail[len(scratch.Tail)-keep:]

	summary, err := c.summarize(ctx, scratch.Summary, toSummarize)
	if err != nil {
		return State{}, fmt.Errorf("session: compaction: %w", err)
	}

	return State{
		Summary:              summary,
		Tail:                 remaining,
		TurnsSinceCompaction: 0,
	}, nil
}

// summarize sends the fixed instruction, the existing summary as the
// same background block PromptView uses, and the turns to fold.
func (c *Compactor) summarize(ctx context.Context, summary string, turns []Turn) (string, error) {
	view := State{Summary: summary, Tail: turns}

	contents := make([]genai.Content, 0, len(turns)+2)
	contents = append(contents, genai.Content{
		Role: genai.RoleUser,
		Text: summarizeInstruction,
	})
	contents = append(contents, view.PromptView()...)

	return c.generator.Generate(ctx, genai.Request{
		SystemInstruction: summarizeSystemInstruction,
		Contents:          contents,
		UseRetrieval:      false,
		Model:             c.config.SummaryModel,
	})
}
