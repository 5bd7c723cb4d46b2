package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"genserver/internal/domain"
	"genserver/internal/llm"
)

type textGenerateRequest struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type textGenerateResponse struct {
	Text string `json:"text"`
}

func (a *App) GenerateText(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeTextRequest(w, r)
	if !ok {
		return
	}
	text, err := a.LLM.GenerateWithFallback(r.Context(), llm.Request{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, textGenerateResponse{Text: text})
}

// StreamText relays LLM output as server-sent events. Once the first chunk is
// written the response is committed, so later failures arrive as an error
// event instead of an HTTP error status.
func (a *App) StreamText(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeTextRequest(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported")
		return
	}

	events, err := a.LLM.StreamWithFallback(r.Context(), llm.Request{
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		if ev.Err != nil {
			writeSSE(w, "error", map[string]string{
				"code":    domain.ErrorCode(ev.Err),
				"message": ev.Err.Error(),
			})
			flusher.Flush()
			return
		}
		writeSSE(w, "chunk", map[string]string{"text": ev.Text})
		flusher.Flush()
	}
	writeSSE(w, "done", map[string]string{})
	flusher.Flush()
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (a *App) decodeTextRequest(w http.ResponseWriter, r *http.Request) (textGenerateRequest, bool) {
	var req textGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.CodeInvalidParameter, "invalid request payload")
		return req, false
	}
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, domain.CodeRequiredFieldMissing, "prompt is required")
		return req, false
	}
	return req, true
}
