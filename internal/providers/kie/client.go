// Package kie implements the shared HTTP client for the KIE aggregator API.
// Every adapter funnels its outbound calls through this client so the retry,
// timeout and error-classification rules live in one place.
package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genserver/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("kie: api key is required")

// APIError is a definitive provider response with a non-2xx status. It is
// never retried at this layer; callers may still fall back to another
// provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kie: api error: status %d: %s", e.Status, e.Body)
}

const (
	defaultBaseURL        = "https://api.kie.ai"
	defaultAttemptTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = time.Second
)

// Options configures the KIE client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	AttemptTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// Client performs authenticated JSON calls with per-attempt timeouts and
// exponential backoff on transient transport failures.
type Client struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	logger         *infra.Logger
	attemptTimeout time.Duration
	maxRetries     int
	initialBackoff time.Duration
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("kie: invalid base url %q: %w", baseURL, err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	attemptTimeout := opts.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if opts.MaxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	initialBackoff := opts.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = defaultInitialBackoff
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        baseURL,
		httpClient:     httpClient,
		logger:         logger,
		attemptTimeout: attemptTimeout,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

// BaseURL returns the configured endpoint root.
func (c *Client) BaseURL() string {
	if c == nil {
		return defaultBaseURL
	}
	return c.baseURL
}

// PostJSON issues a POST to path with a JSON payload and decodes the 2xx
// response into out.
func (c *Client) PostJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kie: encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

// GetJSON issues a GET to path and decodes the 2xx response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if !c.HasCredentials() {
		return ErrMissingAPIKey
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var lastErr error
	backoff := c.initialBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err := c.attempt(ctx, method, endpoint, body, out)
		if err == nil {
			return nil
		}
		// A received HTTP error status is a definitive rejection; surface it
		// without burning the remaining attempts.
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return err
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Str("endpoint", endpoint).
			Msg("kie: transient request failure")
	}
	return fmt.Errorf("kie: unreachable after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, body []byte, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("kie: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kie: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kie: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("kie: decode response: %w", err)
	}
	return nil
}

// isRetryable classifies transport-level failures that are worth another
// attempt: timeouts, reset/refused connections, DNS failures and generic
// dial errors. Anything that produced an HTTP response is handled above.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused") {
		return true
	}
	if strings.Contains(msg, "eof") {
		return true
	}
	return false
}
