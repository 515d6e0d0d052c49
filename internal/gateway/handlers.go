package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/flemzord/sessiond/internal/genai"
	"github.com/flemzord/sessiond/internal/session"
)

// Request/response shapes for the session API.

type newSessionResponse struct {
	SessionID string `json:"session_id"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
	Full      bool   `json:"full,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type historyRequest struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`
	Before    int64  `json:"before,omitempty"`
}

type turnJSON struct {
	Position int64  `json:"position"`
	Role     string `json:"role"`
	Text     string `json:"text"`
}

type historyResponse struct {
	Summary      string     `json:"summary"`
	Turns        []turnJSON `json:"turns"`
	CreatedAt    string     `json:"created_at"`
	LastAccessAt string     `json:"last_access_at"`
}

type chatRequest struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

type chatResponse struct {
	Text string `json:"text"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleNewSession creates a session and returns its identifier.
func (g *Gateway) handleNewSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := g.sessions.Create(r.Context())
		if err != nil {
			g.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse{SessionID: id})
	}
}

// handleReset clears a session's rolling context (and log, when full).
func (g *Gateway) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing session_id"})
			return
		}
		if err := g.sessions.Reset(r.Context(), req.SessionID, req.Full); err != nil {
			g.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// handleHistory returns the summary plus one page of logged turns.
func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req historyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing session_id"})
			return
		}

		res, err := g.sessions.History(r.Context(), req.SessionID, req.Limit, req.Before)
		if err != nil {
			g.writeError(w, err)
			return
		}

		turns := make([]turnJSON, 0, len(res.Turns))
		for _, t := range res.Turns {
			turns = append(turns, turnJSON{
				Position: t.Position,
				Role:     string(t.Role),
				Text:     t.Text,
			})
		}

		writeJSON(w, http.StatusOK, historyResponse{
			Summary:      res.Summary,
			Turns:        turns,
			CreatedAt:    res.Entry.CreatedAt.UTC().Format(time.RFC3339),
			LastAccessAt: res.Entry.LastAccessAt.UTC().Format(time.RFC3339),
		})
	}
}

// handleChat runs one chat exchange.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing session_id"})
			return
		}

		g.metrics.chatRequests.Inc()
		start := time.Now()

		res, err := g.sessions.Chat(r.Context(), req.SessionID, req.Message, req.SystemPrompt)
		if err != nil {
			g.metrics.chatErrors.Inc()
			g.writeError(w, err)
			return
		}

		g.metrics.chatDuration.Observe(time.Since(start).Seconds())
		if res.Compacted {
			g.metrics.compactions.Inc()
		}

		writeJSON(w, http.StatusOK, chatResponse{Text: res.Text})
	}
}

// handleHealth reports liveness plus the active session count.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if count, err := g.sessions.ActiveSessions(r.Context()); err == nil {
			resp.Sessions = count
		} else {
			resp.Status = "degraded"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

// writeError maps core errors onto HTTP statuses: validation 400,
// unknown session 404, generation failure 502, anything else 500.
func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrSystemPromptRejected):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, genai.ErrGenerationFailed),
		errors.Is(err, genai.ErrMissingAPIKey),
		errors.Is(err, genai.ErrMissingRetrievalStore):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		g.logger.Error("gateway: request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody parses the JSON request body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
