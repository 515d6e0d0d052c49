package genai

import "errors"

// Sentinel errors for generation calls.
var (
	// ErrMissingAPIKey indicates no API key is configured.
	ErrMissingAPIKey = errors.New("genai: missing api key")

	// ErrMissingRetrievalStore indicates retrieval was requested but no
	// retrieval store name is configured.
	ErrMissingRetrievalStore = errors.New("genai: missing retrieval store")

	// ErrGenerationFailed indicates the backend returned a non-success
	// status or an unusable payload. The wrapped detail carries the
	// status code and response excerpt.
	ErrGenerationFailed = errors.New("genai: generation failed")
)
