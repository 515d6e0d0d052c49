// Package genai provides a client for the text-generation backend.
// The backend speaks the Gemini generateContent REST surface; everything
// above this package treats it as a black box behind the Generator
// interface.
package genai

import "context"

// ContentRole identifies the author of a content block.
type ContentRole string

// ContentRole constants for conversation content blocks.
const (
	RoleUser  ContentRole = "user"
	RoleModel ContentRole = "model"
)

// Content is one role-tagged block in a generation request.
type Content struct {
	Role ContentRole `json:"role"`
	Text string      `json:"text"`
}

// Request describes a single generation call.
type Request struct {
	// SystemInstruction is the system prompt for the call.
	SystemInstruction string

	// Contents is the ordered conversation payload.
	Contents []Content

	// UseRetrieval enables backend-side retrieval augmentation.
	// Summarization calls must leave this false.
	UseRetrieval bool

	// Model overrides the configured chat model when non-empty.
	Model string
}

// Generator produces text from a conversation payload.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
