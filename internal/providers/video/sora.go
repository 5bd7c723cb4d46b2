package video

import (
	"context"
	"strconv"

	"genserver/internal/domain/modelcfg"
	"genserver/internal/providers/kie"
)

const (
	sora2CatalogID    = "sora-2"
	sora2ProCatalogID = "sora-2-pro"
	sora2MaxImages    = 3
)

// Sora2Adapter serves the base Sora-2 model. The concrete model id sent to
// the provider depends on whether any input images are present; the mapping
// lives in the model catalog.
type Sora2Adapter struct {
	client  *kie.Client
	catalog *modelcfg.Registry
}

func NewSora2Adapter(client *kie.Client, catalog *modelcfg.Registry) *Sora2Adapter {
	return &Sora2Adapter{client: client, catalog: catalog}
}

func (a *Sora2Adapter) CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	return createSoraTask(ctx, a.client, a.catalog, sora2CatalogID, params, callbackURL)
}

func (a *Sora2Adapter) QueryTask(ctx context.Context, taskID string) (*QueryResult, error) {
	return kieQueryTask(ctx, a.client, "sora2", taskID)
}

// CalculateCredits uses the fixed Sora-2 table: 10s costs 100, 15s costs 140.
// Other durations scale proportionally from the 10s base.
func (a *Sora2Adapter) CalculateCredits(params GenerationParams) (int, error) {
	duration := defaultDuration(params.DurationSeconds, 10)
	table := map[int]int{10: 100, 15: 140}
	if credits, ok := table[duration]; ok {
		return credits, nil
	}
	return proportionalCredits(table[10], 10, duration), nil
}

// Sora2ProAdapter serves the Sora-2 Pro model, priced per (duration, quality)
// pair.
type Sora2ProAdapter struct {
	client  *kie.Client
	catalog *modelcfg.Registry
}

func NewSora2ProAdapter(client *kie.Client, catalog *modelcfg.Registry) *Sora2ProAdapter {
	return &Sora2ProAdapter{client: client, catalog: catalog}
}

func (a *Sora2ProAdapter) CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	return createSoraTask(ctx, a.client, a.catalog, sora2ProCatalogID, params, callbackURL)
}

func (a *Sora2ProAdapter) QueryTask(ctx context.Context, taskID string) (*QueryResult, error) {
	return kieQueryTask(ctx, a.client, "sora2-pro", taskID)
}

func (a *Sora2ProAdapter) CalculateCredits(params GenerationParams) (int, error) {
	duration := defaultDuration(params.DurationSeconds, 10)
	quality := params.Quality
	if quality != "high" {
		quality = "standard"
	}
	table := map[string]int{
		"10_standard": 375,
		"15_standard": 675,
		"10_high":     825,
		"15_high":     1575,
	}
	if credits, ok := table[strconv.Itoa(duration)+"_"+quality]; ok {
		return credits, nil
	}
	return proportionalCredits(table["10_"+quality], 10, duration), nil
}

func createSoraTask(ctx context.Context, client *kie.Client, catalog *modelcfg.Registry, catalogID string, params GenerationParams, callbackURL string) (string, error) {
	images := collectImages(params, sora2MaxImages)

	// Image presence decides between the text-to-video and image-to-video
	// variants of the model.
	subModel := catalogID
	if catalog != nil {
		variant := catalogID + "/text-to-video"
		if len(images) > 0 {
			variant = catalogID + "/image-to-video"
		}
		subModel = catalog.ProviderModelID("kie", variant)
	}

	aspectRatio := "portrait"
	if params.AspectRatio == "landscape" || params.AspectRatio == "16:9" {
		aspectRatio = "landscape"
	}
	input := map[string]any{
		"prompt":          params.Prompt,
		"n_frames":        strconv.Itoa(defaultDuration(params.DurationSeconds, 10)),
		"aspect_ratio":    aspectRatio,
		"removeWatermark": true,
	}
	if len(images) > 0 {
		input["image_urls"] = images
	}
	body := map[string]any{
		"model":       subModel,
		"callBackUrl": callbackURL,
		"input":       input,
	}
	return kieCreateTask(ctx, client, "sora2", body)
}

func defaultDuration(seconds, fallback int) int {
	if seconds <= 0 {
		return fallback
	}
	return seconds
}
