package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize is the maximum response body size (10 MB).
// Protects against OOM from malformed or huge responses.
const maxResponseSize = 10 * 1024 * 1024

// defaultBaseURL is the public generateContent endpoint prefix.
const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// temperature keeps generation deterministic enough for faithful
// summaries and replies alike.
const temperature = 0.2

// Config holds the generation backend settings.
type Config struct {
	APIKey          string
	BaseURL         string // empty = defaultBaseURL
	ChatModel       string
	SummaryModel    string // empty = ChatModel
	RetrievalStore  string // file_search store name; required for retrieval
	MaxOutputTokens int
	Timeout         time.Duration
}

// defaults fills zero values with the original service defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.ChatModel == "" {
		c.ChatModel = "models/gemini-2.5-flash"
	}
	if c.SummaryModel == "" {
		c.SummaryModel = c.ChatModel
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 700
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// Client calls the generateContent endpoint over HTTP.
type Client struct {
	config Config
	client *http.Client
}

// Compile-time interface check.
var _ Generator = (*Client)(nil)

// NewClient creates a Client. The configuration is validated lazily:
// a missing API key fails the first Generate call, not construction,
// so a service can boot without credentials and surface the error per
// request.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Wire types for the generateContent request/response payloads.

type wirePart struct {
	Text string `json:"text,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireFileSearch struct {
	StoreNames []string `json:"file_search_store_names"`
}

type wireTool struct {
	FileSearch *wireFileSearch `json:"file_search,omitempty"`
}

type wireGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type wireRequest struct {
	SystemInstruction *wireContent         `json:"systemInstruction,omitempty"`
	Contents          []wireContent        `json:"contents"`
	GenerationConfig  wireGenerationConfig `json:"generationConfig"`
	Tools             []wireTool           `json:"tools,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// buildRequest maps a Request onto the wire payload.
func (c *Client) buildRequest(req Request) wireRequest {
	wr := wireRequest{
		Contents: make([]wireContent, 0, len(req.Contents)),
		GenerationConfig: wireGenerationConfig{
			MaxOutputTokens: c.config.MaxOutputTokens,
			Temperature:     temperature,
		},
	}

	if req.SystemInstruction != "" {
		wr.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: req.SystemInstruction}},
		}
	}

	for _, block := range req.Contents {
		wr.Contents = append(wr.Contents, wireContent{
			Role:  string(block.Role),
			Parts: []wirePart{{Text: block.Text}},
		})
	}

	if req.UseRetrieval {
		wr.Tools = []wireTool{{
			FileSearch: &wireFileSearch{
				StoreNames: []string{c.config.RetrievalStore},
			},
		}}
	}

	return wr
}

// endpoint builds the generateContent URL for the given model.
func (c *Client) endpoint(model string) string {
	return fmt.Sprintf("%s/%s:generateContent?key=%s",
		c.config.BaseURL, model, url.QueryEscape(c.config.APIKey))
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.config.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	if req.UseRetrieval && c.config.RetrievalStore == "" {
		return "", ErrMissingRetrievalStore
	}

	model := req.Model
	if model == "" {
		model = c.config.ChatModel
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("genai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("genai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrGenerationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, excerpt(raw))
	}

	var wr wireResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", ErrGenerationFailed, err)
	}

	text := candidateText(wr)
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate", ErrGenerationFailed)
	}
	return text, nil
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(wr wireResponse) string {
	if len(wr.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range wr.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// excerpt truncates an error body for diagnostics.
func excerpt(raw []byte) string {
	const max = 512
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
