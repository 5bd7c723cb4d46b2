package kie

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

type scriptedTransport struct {
	calls     int
	responses []scriptedResponse
	bodies    [][]byte
	headers   []http.Header
}

type scriptedResponse struct {
	status int
	body   string
	err    error
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		s.bodies = append(s.bodies, body)
	} else {
		s.bodies = append(s.bodies, nil)
	}
	s.headers = append(s.headers, req.Header.Clone())

	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	resp := s.responses[idx]
	if resp.err != nil {
		return nil, resp.err
	}
	return &http.Response{
		StatusCode: resp.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(resp.body)),
	}, nil
}

func newTestClient(t *testing.T, transport http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:         "test-key",
		BaseURL:        "https://kie.test",
		HTTPClient:     &http.Client{Transport: transport},
		InitialBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestPostJSONSendsAuthAndDecodesBody(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{status: http.StatusOK, body: `{"code":200,"data":{"taskId":"task-777"}}`},
	}}
	client := newTestClient(t, transport)

	var out struct {
		Code int `json:"code"`
		Data struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	err := client.PostJSON(context.Background(), "/api/v1/jobs/createTask", map[string]any{"model": "sora-2"}, &out)
	if err != nil {
		t.Fatalf("post json: %v", err)
	}
	if out.Data.TaskID != "task-777" {
		t.Fatalf("taskId = %q, want task-777", out.Data.TaskID)
	}
	if got := transport.headers[0].Get("Authorization"); got != "Bearer test-key" {
		t.Fatalf("authorization = %q, want bearer token", got)
	}
	if got := transport.headers[0].Get("Content-Type"); got != "application/json" {
		t.Fatalf("content-type = %q, want application/json", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.bodies[0], &payload); err != nil {
		t.Fatalf("decode captured payload: %v", err)
	}
	if payload["model"] != "sora-2" {
		t.Fatalf("payload model = %v, want sora-2", payload["model"])
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
		{err: &net.DNSError{Err: "no such host", Name: "kie.test"}},
		{status: http.StatusOK, body: `{"ok":true}`},
	}}
	client := newTestClient(t, transport)

	var out map[string]any
	if err := client.GetJSON(context.Background(), "/api/v1/jobs/recordInfo", &out); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if len(transport.bodies) != 3 {
		t.Fatalf("attempts = %d, want 3", len(transport.bodies))
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{err: &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}},
	}}
	client := newTestClient(t, transport)

	err := client.GetJSON(context.Background(), "/api/v1/jobs/recordInfo", nil)
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if len(transport.bodies) != 4 {
		t.Fatalf("attempts = %d, want 4 (1 initial + 3 retries)", len(transport.bodies))
	}
}

func TestDoNeverRetriesAPIErrors(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{status: http.StatusUnprocessableEntity, body: `{"code":422,"msg":"invalid duration"}`},
	}}
	client := newTestClient(t, transport)

	err := client.PostJSON(context.Background(), "/api/v1/jobs/createTask", map[string]any{}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", apiErr.Status)
	}
	if !strings.Contains(apiErr.Body, "invalid duration") {
		t.Fatalf("body = %q, want provider message preserved", apiErr.Body)
	}
	if len(transport.bodies) != 1 {
		t.Fatalf("attempts = %d, want exactly 1 for definitive rejection", len(transport.bodies))
	}
}

func TestDoRequiresAPIKey(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "https://kie.test"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.HasCredentials() {
		t.Fatalf("expected missing credentials")
	}
	if err := client.GetJSON(context.Background(), "/api/v1/jobs/recordInfo", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
	}}
	client, err := NewClient(Options{
		APIKey:         "test-key",
		BaseURL:        "https://kie.test",
		HTTPClient:     &http.Client{Transport: transport},
		InitialBackoff: time.Minute,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.GetJSON(ctx, "/api/v1/jobs/recordInfo", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", context.DeadlineExceeded, true},
		{"dns", &net.DNSError{Err: "no such host"}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"reset text", errors.New("read tcp: connection reset by peer"), true},
		{"eof", io.ErrUnexpectedEOF, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("invalid payload"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.want {
				t.Fatalf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
