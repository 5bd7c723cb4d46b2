package llm

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"genserver/internal/domain"
	"genserver/internal/infra"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 800 * time.Millisecond
)

// Service fans requests across an ordered list of providers. The first
// provider is preferred; the rest are fallbacks tried in order.
type Service struct {
	providers      []Provider
	maxRetries     int
	initialBackoff time.Duration
	logger         *infra.Logger
}

type ServiceOptions struct {
	Providers      []Provider
	MaxRetries     int
	InitialBackoff time.Duration
	Logger         *infra.Logger
}

func NewService(opts ServiceOptions) *Service {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = defaultInitialBackoff
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Service{
		providers:      opts.Providers,
		maxRetries:     maxRetries,
		initialBackoff: backoff,
		logger:         logger,
	}
}

// Providers reports the configured provider names in fallback order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// GenerateWithFallback runs the request against each provider in order,
// retrying transient failures per provider, until one returns text.
func (s *Service) GenerateWithFallback(ctx context.Context, req Request) (string, error) {
	if len(s.providers) == 0 {
		return "", domain.NewCodedError(domain.CodeLLMServiceUnavailable, "no llm providers configured", nil)
	}
	var lastErr error
	for _, provider := range s.providers {
		text, err := s.withRetry(ctx, provider.Name(), func() (string, error) {
			return provider.Generate(ctx, req)
		})
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		s.logger.Warn().Err(err).Str("provider", provider.Name()).Msg("llm provider failed, trying next")
	}
	return "", domain.NewCodedError(domain.CodeLLMServiceUnavailable, "all llm providers failed", lastErr)
}

// StreamWithFallback streams from the first provider that produces output.
// A provider that fails before delivering any chunk is replaced by the next
// one; once a chunk has reached the caller the stream is committed and any
// later error is surfaced as-is.
func (s *Service) StreamWithFallback(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if len(s.providers) == 0 {
		return nil, domain.NewCodedError(domain.CodeLLMServiceUnavailable, "no llm providers configured", nil)
	}
	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		var lastErr error
		for _, provider := range s.providers {
			delivered, err := s.streamOne(ctx, provider, req, out)
			if err == nil {
				return
			}
			if delivered || ctx.Err() != nil {
				out <- StreamEvent{Err: err}
				return
			}
			lastErr = err
			s.logger.Warn().Err(err).Str("provider", provider.Name()).Msg("llm stream failed before first chunk, trying next")
		}
		out <- StreamEvent{Err: domain.NewCodedError(domain.CodeLLMServiceUnavailable, "all llm providers failed", lastErr)}
	}()
	return out, nil
}

// streamOne relays one provider's stream into out. It reports whether any
// chunk was delivered and the terminal error, if any.
func (s *Service) streamOne(ctx context.Context, provider Provider, req Request, out chan<- StreamEvent) (bool, error) {
	events, err := provider.Stream(ctx, req)
	if err != nil {
		return false, err
	}
	delivered := false
	for ev := range events {
		if ev.Err != nil {
			return delivered, ev.Err
		}
		select {
		case out <- ev:
			delivered = true
		case <-ctx.Done():
			return delivered, ctx.Err()
		}
	}
	return delivered, nil
}

func (s *Service) withRetry(ctx context.Context, name string, fn func() (string, error)) (string, error) {
	backoff := s.initialBackoff
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
		}
		text, err := fn()
		if err == nil {
			return text, nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
		s.logger.Debug().Err(err).Str("provider", name).Int("attempt", attempt+1).Msg("llm request failed")
	}
	return "", lastErr
}
