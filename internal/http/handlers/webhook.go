package handlers

import (
	"io"
	"net"
	"net/http"
	"strings"

	"genserver/internal/domain"
	"genserver/internal/generation"
)

const maxCallbackBody = 1 << 20

type webhookResponse struct {
	Status    string `json:"status"`
	TaskID    string `json:"taskId"`
	State     string `json:"state"`
	URLsCount int    `json:"urls_count"`
}

// GenerationWebhook receives provider callbacks. The webhook token travels in
// the query string; it must match the record's token exactly.
func (a *App) GenerationWebhook(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, domain.CodeMalformedCallback, "unreadable callback body")
		return
	}

	cb, err := generation.ParseCallback(body)
	if err != nil {
		a.Logger.Warn().
			Str("remote_ip", remoteIP(r)).
			Str("country", a.callerCountry(r)).
			Msg("rejected malformed webhook payload")
		a.fail(w, err)
		return
	}

	result, err := a.Coordinator.Reconcile(r.Context(), cb, token)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.Logger.Info().
		Str("remote_task_id", result.TaskID).
		Str("state", string(result.State)).
		Int("urls_count", result.URLCount).
		Bool("already_processed", result.AlreadyProcessed).
		Str("country", a.callerCountry(r)).
		Msg("webhook reconciled")

	a.json(w, http.StatusAccepted, webhookResponse{
		Status:    "accepted",
		TaskID:    result.TaskID,
		State:     string(result.State),
		URLsCount: result.URLCount,
	})
}

func (a *App) callerCountry(r *http.Request) string {
	if a.GeoIP == nil {
		return ""
	}
	code, err := a.GeoIP.CountryCode(remoteIP(r))
	if err != nil {
		return ""
	}
	return code
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
