package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"genserver/internal/domain"
	"genserver/internal/providers/kie"
)

const (
	kieCreateEndpoint = "/api/v1/jobs/createTask"
	kieQueryEndpoint  = "/api/v1/jobs/recordInfo"
)

// kieEnvelope is the response wrapper shared by every KIE job endpoint.
type kieEnvelope struct {
	Code    int          `json:"code"`
	Msg     string       `json:"msg"`
	Message string       `json:"message"`
	Data    *kieTaskData `json:"data"`
}

type kieTaskData struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailMsg    string `json:"failMsg"`
	FailCode   string `json:"failCode"`
}

func (e *kieEnvelope) errorMessage() string {
	if e == nil {
		return "empty response"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Data != nil && e.Data.FailMsg != "" {
		return e.Data.FailMsg
	}
	return "unknown error"
}

// kieCreateTask submits a job payload and returns the remote task id.
func kieCreateTask(ctx context.Context, client *kie.Client, name string, body any) (string, error) {
	var envelope kieEnvelope
	if err := client.PostJSON(ctx, kieCreateEndpoint, body, &envelope); err != nil {
		return "", fmt.Errorf("%s: create task: %w", name, err)
	}
	if envelope.Code != 200 || envelope.Data == nil || envelope.Data.TaskID == "" {
		return "", fmt.Errorf("%s: create task rejected (code %d): %s: %w",
			name, envelope.Code, envelope.errorMessage(), domain.ErrProviderFailure)
	}
	return envelope.Data.TaskID, nil
}

// kieQueryTask polls a job and normalizes the provider state.
func kieQueryTask(ctx context.Context, client *kie.Client, name, taskID string) (*QueryResult, error) {
	path := kieQueryEndpoint + "?taskId=" + url.QueryEscape(taskID)
	var envelope kieEnvelope
	if err := client.GetJSON(ctx, path, &envelope); err != nil {
		return nil, fmt.Errorf("%s: query task: %w", name, err)
	}
	if envelope.Code != 200 || envelope.Data == nil {
		return nil, fmt.Errorf("%s: query task rejected (code %d): %s: %w",
			name, envelope.Code, envelope.errorMessage(), domain.ErrProviderFailure)
	}
	data := envelope.Data
	return &QueryResult{
		TaskID:     data.TaskID,
		State:      NormalizeState(data.State),
		ResultURLs: decodeResultJSON(data.ResultJSON),
		FailMsg:    data.FailMsg,
		FailCode:   data.FailCode,
	}, nil
}

// decodeResultJSON extracts result URLs from the JSON-encoded resultJson
// field; malformed payloads yield no URLs rather than an error so the caller
// can still observe the task state.
func decodeResultJSON(raw string) []string {
	if raw == "" {
		return nil
	}
	var parsed struct {
		ResultURLs []string `json:"resultUrls"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	var urls []string
	for _, u := range parsed.ResultURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
