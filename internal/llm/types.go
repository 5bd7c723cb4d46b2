// Package llm provides one-shot and streaming text generation with
// cross-provider fallback.
package llm

import "context"

// Request carries a normalized text generation call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// StreamEvent is one element of a text stream: either an incremental text
// chunk or a terminal error.
type StreamEvent struct {
	Text string
	Err  error
}

// Provider is implemented once per LLM backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	// Stream starts a streaming generation. A non-nil error means the stream
	// never started; errors after start arrive as the channel's final event.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}
