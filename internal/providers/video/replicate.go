package video

import (
	"context"
	"fmt"
	"net/url"

	"genserver/internal/domain"
	"genserver/internal/domain/modelcfg"
	"genserver/internal/providers/kie"
)

const replicateDefaultCredits = 300

// ReplicateAdapter is the cross-provider fallback. It drives the Replicate
// predictions API, which shares the bearer-token JSON call shape with KIE, so
// the same retrying client is reused with a different base URL.
type ReplicateAdapter struct {
	client  *kie.Client
	catalog *modelcfg.Registry
}

func NewReplicateAdapter(client *kie.Client, catalog *modelcfg.Registry) *ReplicateAdapter {
	return &ReplicateAdapter{client: client, catalog: catalog}
}

type replicatePrediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
	Detail string   `json:"detail"`
}

func (a *ReplicateAdapter) CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	input := map[string]any{
		"prompt": params.Prompt,
	}
	if params.DurationSeconds > 0 {
		input["duration"] = params.DurationSeconds
	}
	if params.AspectRatio != "" {
		input["aspect_ratio"] = params.AspectRatio
	}
	if images := collectImages(params, 1); len(images) > 0 {
		input["image"] = images[0]
	}
	if params.Seed != 0 {
		input["seed"] = params.Seed
	}
	body := map[string]any{
		"version":               params.ModelID,
		"input":                 input,
		"webhook":               callbackURL,
		"webhook_events_filter": []string{"completed"},
	}

	var prediction replicatePrediction
	if err := a.client.PostJSON(ctx, "/predictions", body, &prediction); err != nil {
		return "", fmt.Errorf("replicate: create prediction: %w", err)
	}
	if prediction.ID == "" {
		return "", fmt.Errorf("replicate: create prediction rejected: %s: %w",
			predictionError(&prediction), domain.ErrProviderFailure)
	}
	return prediction.ID, nil
}

func (a *ReplicateAdapter) QueryTask(ctx context.Context, taskID string) (*QueryResult, error) {
	var prediction replicatePrediction
	path := "/predictions/" + url.PathEscape(taskID)
	if err := a.client.GetJSON(ctx, path, &prediction); err != nil {
		return nil, fmt.Errorf("replicate: query prediction: %w", err)
	}
	return &QueryResult{
		TaskID:     prediction.ID,
		State:      NormalizeState(prediction.Status),
		ResultURLs: prediction.Output,
		FailMsg:    prediction.Error,
	}, nil
}

// CalculateCredits prices from the catalog rate when one is configured for
// the logical model, with a flat default otherwise so a fallback run is
// never free.
func (a *ReplicateAdapter) CalculateCredits(params GenerationParams) (int, error) {
	duration := defaultDuration(params.DurationSeconds, 5)
	withSound := params.Sound != nil && *params.Sound
	mode := "std"
	if params.Quality == "high" {
		mode = "pro"
	}
	if a.catalog != nil {
		if rate := a.catalog.RatePerSecond(params.ModelID, mode, withSound); rate > 0 {
			return rate * duration, nil
		}
	}
	return replicateDefaultCredits, nil
}

func predictionError(p *replicatePrediction) string {
	if p.Error != "" {
		return p.Error
	}
	if p.Detail != "" {
		return p.Detail
	}
	return "unknown error"
}
