package video

import (
	"context"

	"genserver/internal/providers/kie"
)

const (
	wanDefaultCredits = 500
	wanMaxImages      = 1
)

// wanCreditsTable prices by resolution and duration, extended proportionally
// from the 5 second base for longer clips.
var wanCreditsTable = map[string]map[int]int{
	"720p":  {5: 300, 10: 600},
	"1080p": {5: 500, 10: 1000},
}

// WanAdapter serves the Wan 2.5 model family.
type WanAdapter struct {
	client *kie.Client
}

func NewWanAdapter(client *kie.Client) *WanAdapter {
	return &WanAdapter{client: client}
}

func (a *WanAdapter) CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	images := collectImages(params, wanMaxImages)

	aspectRatio := params.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "auto"
	}
	input := map[string]any{
		"prompt":                  params.Prompt,
		"resolution":              mapQualityToWanResolution(params.Quality),
		"aspect_ratio":            aspectRatio,
		"enable_prompt_expansion": true,
	}
	if params.Seed != 0 {
		input["seed"] = params.Seed
	}
	if len(images) > 0 {
		input["image_url"] = images[0]
		input["duration"] = mapDurationToWan(params.DurationSeconds)
	}
	body := map[string]any{
		"model":       params.ModelID,
		"callBackUrl": callbackURL,
		"input":       input,
	}
	return kieCreateTask(ctx, a.client, "wan", body)
}

func (a *WanAdapter) QueryTask(ctx context.Context, taskID string) (*QueryResult, error) {
	return kieQueryTask(ctx, a.client, "wan", taskID)
}

func (a *WanAdapter) CalculateCredits(params GenerationParams) (int, error) {
	resolution := mapQualityToWanResolution(params.Quality)
	duration := defaultDuration(params.DurationSeconds, 5)

	table, ok := wanCreditsTable[resolution]
	if !ok {
		return wanDefaultCredits, nil
	}
	if credits, ok := table[duration]; ok {
		return credits, nil
	}
	return proportionalCredits(table[5], 5, duration), nil
}

// mapQualityToWanResolution maps the normalized quality tier onto Wan's
// resolution vocabulary: standard renders at 720p, high at 1080p.
func mapQualityToWanResolution(quality string) string {
	if quality == "high" {
		return "1080p"
	}
	return "720p"
}

// mapDurationToWan renders the duration as "5" or "10", the only values the
// image-to-video endpoint accepts.
func mapDurationToWan(seconds int) string {
	if seconds <= 5 {
		return "5"
	}
	return "10"
}
