// Package generation orchestrates the lifecycle of generation tasks: picking
// a provider, creating the remote task, and reconciling asynchronous results
// back onto the local record.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"genserver/internal/domain"
	"genserver/internal/infra"
	"genserver/internal/providers"
	"genserver/internal/providers/video"
)

// Transferrer copies remote result artifacts into local storage after a task
// completes. Implementations must be safe to skip: transfer failure never
// fails the reconciliation itself.
type Transferrer interface {
	TransferResults(ctx context.Context, gen *domain.Generation, urls []string) error
}

// CreateRequest is an accepted user request for a new generation task.
type CreateRequest struct {
	UserID   string
	Type     domain.GenerationType
	SubType  string
	Provider string
	Params   video.GenerationParams
}

// ReconcileResult reports what a webhook delivery did to the local record.
type ReconcileResult struct {
	TaskID           string
	State            video.TaskState
	URLCount         int
	AlreadyProcessed bool
}

// Coordinator drives task creation with provider-level fallback and webhook
// reconciliation with idempotent, forward-only state transitions.
type Coordinator struct {
	repo           domain.GenerationRepository
	router         *providers.Router
	registry       *video.Registry
	transfer       Transferrer
	webhookBaseURL string
	logger         *infra.Logger
}

func NewCoordinator(
	repo domain.GenerationRepository,
	router *providers.Router,
	registry *video.Registry,
	transfer Transferrer,
	webhookBaseURL string,
	logger *infra.Logger,
) *Coordinator {
	return &Coordinator{
		repo:           repo,
		router:         router,
		registry:       registry,
		transfer:       transfer,
		webhookBaseURL: strings.TrimRight(webhookBaseURL, "/"),
		logger:         logger,
	}
}

// Create quotes the request, persists a pending record, then walks the
// provider candidate sequence until one accepts the task. Credits are
// computed once, before any remote call, from the same path Quote uses.
func (c *Coordinator) Create(ctx context.Context, req CreateRequest) (*domain.Generation, error) {
	if strings.TrimSpace(req.Params.Prompt) == "" {
		return nil, domain.NewCodedError(domain.CodeRequiredFieldMissing,
			"prompt is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Params.ModelID) == "" {
		return nil, domain.NewCodedError(domain.CodeRequiredFieldMissing,
			"model_name is required", domain.ErrValidation)
	}

	candidates := c.router.ResolveCandidates(req.Provider, req.Params.ModelID)
	if len(candidates) == 0 {
		return nil, domain.NewCodedError(domain.CodeProviderNotConfigured,
			"no generation provider is configured", domain.ErrNotConfigured)
	}

	credits, err := c.quoteCandidate(candidates[0], req.Params)
	if err != nil {
		return nil, err
	}

	gen := &domain.Generation{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Type:         req.Type,
		SubType:      req.SubType,
		Status:       domain.GenerationStatusPending,
		Provider:     candidates[0].Provider,
		ModelID:      req.Params.ModelID,
		WebhookToken: uuid.NewString(),
		Prompt:       req.Params.Prompt,
		CreditsCost:  credits,
	}
	if paramsJSON, err := encodeParams(req.Params); err == nil {
		gen.ParamsJSON = paramsJSON
	}
	if err := c.repo.Create(ctx, gen); err != nil {
		return nil, fmt.Errorf("persist generation: %w", err)
	}

	callbackURL := c.callbackURL(gen.WebhookToken)
	var lastErr error
	for _, candidate := range candidates {
		adapter, err := c.registry.Lookup(candidate.Provider, req.Params.ModelID)
		if err != nil {
			lastErr = err
			continue
		}
		params := req.Params
		params.ModelID = candidate.ModelID

		remoteTaskID, err := adapter.CreateTask(ctx, params, callbackURL)
		if err != nil {
			lastErr = err
			c.logger.Warn().
				Err(err).
				Str("generation_id", gen.ID).
				Str("provider", candidate.Provider).
				Msg("provider rejected create task, trying next candidate")
			continue
		}

		// The record keeps the logical model id; the provider-specific id
		// only travels in the outbound payload.
		status := domain.GenerationStatusProcessing
		update := domain.GenerationUpdate{
			Status:       &status,
			Provider:     &candidate.Provider,
			RemoteTaskID: &remoteTaskID,
		}
		if err := c.repo.Update(ctx, gen.ID, update); err != nil {
			return nil, fmt.Errorf("persist remote task id: %w", err)
		}
		gen.Status = status
		gen.Provider = candidate.Provider
		gen.RemoteTaskID = remoteTaskID
		c.logger.Info().
			Str("generation_id", gen.ID).
			Str("provider", candidate.Provider).
			Str("remote_task_id", remoteTaskID).
			Int("credits", credits).
			Msg("generation task created")
		return gen, nil
	}

	failReason := "all providers failed"
	if lastErr != nil {
		failReason = lastErr.Error()
	}
	c.markFailed(ctx, gen, failReason, domain.CodeProviderUnavailable)
	return nil, domain.NewCodedError(domain.CodeProviderUnavailable,
		"all candidate providers failed", lastErr)
}

// Quote computes the credit cost for a hypothetical request without side
// effects, using the exact path Create bills through.
func (c *Coordinator) Quote(ctx context.Context, req CreateRequest) (int, string, error) {
	if strings.TrimSpace(req.Params.ModelID) == "" {
		return 0, "", domain.NewCodedError(domain.CodeRequiredFieldMissing,
			"model_name is required", domain.ErrValidation)
	}
	candidates := c.router.ResolveCandidates(req.Provider, req.Params.ModelID)
	if len(candidates) == 0 {
		return 0, "", domain.NewCodedError(domain.CodeProviderNotConfigured,
			"no generation provider is configured", domain.ErrNotConfigured)
	}
	credits, err := c.quoteCandidate(candidates[0], req.Params)
	if err != nil {
		return 0, "", err
	}
	explain := fmt.Sprintf("%s via %s: %d credits", req.Params.ModelID, candidates[0].Provider, credits)
	return credits, explain, nil
}

// GetByID returns the tracked generation record.
func (c *Coordinator) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	return c.repo.GetByID(ctx, id)
}

// Reconcile applies a normalized provider callback to the local record. The
// record is found by remote task id first, then by webhook token with the
// remote task id backfilled. The token must match exactly regardless of how
// the record was found. Terminal records accept duplicate deliveries without
// re-applying side effects.
func (c *Coordinator) Reconcile(ctx context.Context, cb *NormalizedCallback, providedToken string) (*ReconcileResult, error) {
	gen, err := c.correlate(ctx, cb.TaskID, providedToken)
	if err != nil {
		return nil, err
	}

	if gen.WebhookToken == "" || providedToken == "" || gen.WebhookToken != providedToken {
		c.logger.Warn().
			Str("remote_task_id", cb.TaskID).
			Bool("token_provided", providedToken != "").
			Msg("webhook token mismatch")
		return nil, domain.NewCodedError(domain.CodeWebhookUnauthorized,
			"webhook token mismatch", domain.ErrUnauthorized)
	}

	if gen.Status.IsTerminal() {
		return &ReconcileResult{
			TaskID:           cb.TaskID,
			State:            cb.State,
			URLCount:         len(cb.ResultURLs),
			AlreadyProcessed: true,
		}, nil
	}

	if err := c.applyState(ctx, gen, cb.State, cb.ResultURLs, cb.FailMsg, cb.FailCode); err != nil {
		return nil, err
	}

	return &ReconcileResult{
		TaskID:   cb.TaskID,
		State:    cb.State,
		URLCount: len(cb.ResultURLs),
	}, nil
}

// ApplyQueryResult applies a polled provider status to a known record. It
// shares Reconcile's transition rules but runs on the trusted internal path,
// so no token check applies.
func (c *Coordinator) ApplyQueryResult(ctx context.Context, gen *domain.Generation, result *video.QueryResult) error {
	if gen.Status.IsTerminal() {
		return nil
	}
	return c.applyState(ctx, gen, result.State, result.ResultURLs, result.FailMsg, result.FailCode)
}

// applyState commits a forward-only state transition. Non-terminal states
// leave the record untouched.
func (c *Coordinator) applyState(ctx context.Context, gen *domain.Generation, state video.TaskState, urls []string, failMsg, failCode string) error {
	switch state {
	case video.TaskStateSuccess:
		if len(urls) == 0 {
			return domain.NewCodedError(domain.CodeMalformedCallback,
				"success callback without result urls", domain.ErrValidation)
		}
		status := domain.GenerationStatusCompleted
		if err := c.repo.Update(ctx, gen.ID, domain.GenerationUpdate{
			Status:     &status,
			ResultURLs: urls,
		}); err != nil {
			return fmt.Errorf("persist completion: %w", err)
		}
		c.logger.Info().
			Str("generation_id", gen.ID).
			Str("remote_task_id", gen.RemoteTaskID).
			Int("urls_count", len(urls)).
			Str("url_sample", maskURL(urls[0])).
			Msg("generation completed")
		c.scheduleTransfer(ctx, gen, urls)

	case video.TaskStateFail:
		status := domain.GenerationStatusFailed
		if failMsg == "" {
			failMsg = "generation failed"
		}
		if err := c.repo.Update(ctx, gen.ID, domain.GenerationUpdate{
			Status:     &status,
			FailReason: &failMsg,
			FailCode:   &failCode,
		}); err != nil {
			return fmt.Errorf("persist failure: %w", err)
		}
		c.logger.Info().
			Str("generation_id", gen.ID).
			Str("remote_task_id", gen.RemoteTaskID).
			Str("fail_msg", truncateForLog(failMsg)).
			Msg("generation failed")

	default:
		// Progress reports leave the record in processing.
	}
	return nil
}

// correlate finds the record for a callback and backfills the remote task id
// when the record was located by token.
func (c *Coordinator) correlate(ctx context.Context, remoteTaskID, providedToken string) (*domain.Generation, error) {
	gen, err := c.repo.FindByRemoteTaskID(ctx, remoteTaskID)
	if err == nil {
		return gen, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if providedToken == "" {
		return nil, domain.NewCodedError(domain.CodeGenerationNotFound,
			"no generation correlates to the callback", domain.ErrNotFound)
	}
	gen, err = c.repo.FindByWebhookToken(ctx, providedToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewCodedError(domain.CodeGenerationNotFound,
				"no generation correlates to the callback", domain.ErrNotFound)
		}
		return nil, err
	}
	if gen.RemoteTaskID == "" && remoteTaskID != "" {
		if err := c.repo.Update(ctx, gen.ID, domain.GenerationUpdate{RemoteTaskID: &remoteTaskID}); err != nil {
			return nil, fmt.Errorf("backfill remote task id: %w", err)
		}
		gen.RemoteTaskID = remoteTaskID
	}
	return gen, nil
}

func (c *Coordinator) quoteCandidate(candidate providers.Candidate, params video.GenerationParams) (int, error) {
	adapter, err := c.registry.Lookup(candidate.Provider, params.ModelID)
	if err != nil {
		return 0, err
	}
	params.ModelID = candidate.ModelID
	credits, err := adapter.CalculateCredits(params)
	if err != nil {
		return 0, err
	}
	if credits <= 0 {
		return 0, domain.NewCodedError(domain.CodeInvalidParameter,
			"computed credit cost must be positive", domain.ErrValidation)
	}
	return credits, nil
}

func (c *Coordinator) scheduleTransfer(ctx context.Context, gen *domain.Generation, urls []string) {
	if c.transfer == nil {
		return
	}
	if err := c.transfer.TransferResults(ctx, gen, urls); err != nil {
		c.logger.Error().
			Err(err).
			Str("generation_id", gen.ID).
			Msg("result transfer failed")
	}
}

func (c *Coordinator) markFailed(ctx context.Context, gen *domain.Generation, reason, code string) {
	status := domain.GenerationStatusFailed
	if err := c.repo.Update(ctx, gen.ID, domain.GenerationUpdate{
		Status:     &status,
		FailReason: &reason,
		FailCode:   &code,
	}); err != nil {
		c.logger.Error().
			Err(err).
			Str("generation_id", gen.ID).
			Msg("failed to persist terminal failure")
	}
}

func (c *Coordinator) callbackURL(token string) string {
	return c.webhookBaseURL + "/api/generation/webhook?token=" + token
}

func encodeParams(params video.GenerationParams) ([]byte, error) {
	return json.Marshal(params)
}
