package generation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"genserver/internal/domain"
	"genserver/internal/providers/video"
)

// NormalizedCallback is the single shape every provider payload collapses to.
type NormalizedCallback struct {
	TaskID     string
	State      video.TaskState
	ResultURLs []string
	FailMsg    string
	FailCode   string
}

// statePayload nests an explicit state string plus a JSON-encoded result
// list.
type statePayload struct {
	Code int `json:"code"`
	Data *struct {
		TaskID     string `json:"taskId"`
		State      string `json:"state"`
		ResultJSON string `json:"resultJson"`
		FailMsg    string `json:"failMsg"`
		FailCode   string `json:"failCode"`
	} `json:"data"`
}

// codePayload carries no state field; success is inferred from the response
// code plus a non-empty result list.
type codePayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		TaskID string `json:"taskId"`
		Info   *struct {
			ResultURLs []string `json:"result_urls"`
		} `json:"info"`
	} `json:"data"`
}

// ParseCallback normalizes a raw webhook body. The state-bearing shape is
// tried first; payloads without a state field fall through to the
// code-inferred shape. The two parsers stay isolated so a third provider
// shape never touches either.
func ParseCallback(raw []byte) (*NormalizedCallback, error) {
	if cb, ok := parseStateCallback(raw); ok {
		return cb, nil
	}
	if cb, ok := parseCodeCallback(raw); ok {
		return cb, nil
	}
	return nil, domain.NewCodedError(domain.CodeMalformedCallback,
		"webhook payload does not match any known shape", domain.ErrValidation)
}

func parseStateCallback(raw []byte) (*NormalizedCallback, bool) {
	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	if payload.Data == nil || payload.Data.TaskID == "" || payload.Data.State == "" {
		return nil, false
	}
	state := video.TaskStateFail
	if video.NormalizeState(payload.Data.State) == video.TaskStateSuccess {
		state = video.TaskStateSuccess
	}
	cb := &NormalizedCallback{
		TaskID:   payload.Data.TaskID,
		State:    state,
		FailMsg:  payload.Data.FailMsg,
		FailCode: payload.Data.FailCode,
	}
	if state == video.TaskStateSuccess && payload.Data.ResultJSON != "" {
		var parsed struct {
			ResultURLs []string `json:"resultUrls"`
		}
		if err := json.Unmarshal([]byte(payload.Data.ResultJSON), &parsed); err == nil {
			cb.ResultURLs = filterURLs(parsed.ResultURLs)
		}
	}
	return cb, true
}

func parseCodeCallback(raw []byte) (*NormalizedCallback, bool) {
	var payload codePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	if payload.Data == nil || payload.Data.TaskID == "" {
		return nil, false
	}
	cb := &NormalizedCallback{TaskID: payload.Data.TaskID}
	if payload.Code == 200 && payload.Data.Info != nil && len(payload.Data.Info.ResultURLs) > 0 {
		cb.State = video.TaskStateSuccess
		cb.ResultURLs = filterURLs(payload.Data.Info.ResultURLs)
	} else {
		cb.State = video.TaskStateFail
		cb.FailMsg = payload.Msg
		if cb.FailMsg == "" {
			cb.FailMsg = "generation failed"
		}
	}
	return cb, true
}

func filterURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			out = append(out, u)
		}
	}
	return out
}

// maskURL reduces a result URL to scheme, host and path length for logging.
// Full URLs carry signed query tokens and never go to logs.
func maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "<invalid-url>"
	}
	return fmt.Sprintf("%s://%s/...(%d chars)", parsed.Scheme, parsed.Host, len(parsed.Path))
}

// truncateForLog caps free-form provider text before it hits the log stream.
func truncateForLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
