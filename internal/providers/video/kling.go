package video

import (
	"context"
	"strings"

	"genserver/internal/domain"
	"genserver/internal/domain/modelcfg"
	"genserver/internal/providers/kie"
)

const (
	kling30CatalogID     = "kling-3.0/video"
	kling25ImageToVideo  = "kling/v2-5-turbo-image-to-video-pro"
	kling25TextToVideo   = "kling/v2-5-turbo-text-to-video-pro"
	kling30MaxImages     = 2
	kling30MinDuration   = 3
	kling30MaxDuration   = 15
	kling25CreditsShort  = 210
	kling25CreditsLong   = 420
	kling30FallbackStd   = 60
	kling30FallbackStdA  = 90
	kling30FallbackPro   = 85
	kling30FallbackProA  = 120
	kling30DefaultPrompt = "Cinematic scene"
)

// KlingAdapter serves the Kling v2.5 turbo and Kling 3.0 model families.
// The 3.0 family is priced from the model catalog; v2.5 uses a fixed
// two-duration table.
type KlingAdapter struct {
	client  *kie.Client
	catalog *modelcfg.Registry
}

func NewKlingAdapter(client *kie.Client, catalog *modelcfg.Registry) *KlingAdapter {
	return &KlingAdapter{client: client, catalog: catalog}
}

func (a *KlingAdapter) CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	if isKling30Model(params.ModelID) {
		return a.createKling30Task(ctx, params, callbackURL)
	}
	return a.createKling25Task(ctx, params, callbackURL)
}

func (a *KlingAdapter) createKling30Task(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		prompt = kling30DefaultPrompt
	}
	duration, err := resolveKling30Duration(params.DurationSeconds)
	if err != nil {
		return "", err
	}
	images := collectImages(params, kling30MaxImages)

	input := map[string]any{
		"prompt":       prompt,
		"duration":     duration,
		"aspect_ratio": mapAspectRatioToKling30(params.AspectRatio),
		"mode":         resolveKling30Mode(params),
		"sound":        params.Sound != nil && *params.Sound,
	}
	if len(images) > 0 {
		input["image_urls"] = images
	}
	body := map[string]any{
		"model":       kling30CatalogID,
		"callBackUrl": callbackURL,
		"input":       input,
	}
	return kieCreateTask(ctx, a.client, "kling", body)
}

func (a *KlingAdapter) createKling25Task(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	// v2.5 accepts a single image; the character image outranks references.
	var imageURL string
	if urls := collectImages(params, 1); len(urls) > 0 {
		imageURL = urls[0]
	}
	model := kling25TextToVideo
	if imageURL != "" {
		model = kling25ImageToVideo
	}

	input := map[string]any{
		"prompt":          params.Prompt,
		"duration":        mapDurationToKling25(params.DurationSeconds),
		"negative_prompt": params.NegativePrompt,
		"cfg_scale":       0.5,
	}
	if imageURL != "" {
		input["image_url"] = imageURL
	}
	body := map[string]any{
		"model":       model,
		"callBackUrl": callbackURL,
		"input":       input,
	}
	return kieCreateTask(ctx, a.client, "kling", body)
}

func (a *KlingAdapter) QueryTask(ctx context.Context, taskID string) (*QueryResult, error) {
	return kieQueryTask(ctx, a.client, "kling", taskID)
}

func (a *KlingAdapter) CalculateCredits(params GenerationParams) (int, error) {
	if isKling30Model(params.ModelID) {
		duration, err := resolveKling30Duration(params.DurationSeconds)
		if err != nil {
			return 0, err
		}
		withSound := params.Sound != nil && *params.Sound
		return a.kling30RatePerSecond(resolveKling30Mode(params), withSound) * duration, nil
	}

	if clampKling25Duration(params.DurationSeconds) <= 5 {
		return kling25CreditsShort, nil
	}
	return kling25CreditsLong, nil
}

// kling30RatePerSecond prefers the catalog rate and falls back to the
// documented per-second prices when the catalog has no entry.
func (a *KlingAdapter) kling30RatePerSecond(mode string, withSound bool) int {
	if a.catalog != nil {
		if rate := a.catalog.RatePerSecond(kling30CatalogID, mode, withSound); rate > 0 {
			return rate
		}
	}
	if mode == "pro" {
		if withSound {
			return kling30FallbackProA
		}
		return kling30FallbackPro
	}
	if withSound {
		return kling30FallbackStdA
	}
	return kling30FallbackStd
}

func isKling30Model(modelID string) bool {
	normalized := strings.ToLower(modelID)
	return strings.Contains(normalized, "kling-3.0/video") ||
		strings.Contains(normalized, "kling/video-v3.0") ||
		strings.Contains(normalized, "kling-v3.0")
}

func resolveKling30Mode(params GenerationParams) string {
	if params.Mode == "std" || params.Mode == "pro" {
		return params.Mode
	}
	if params.Quality == "high" || params.Resolution == "1080p" {
		return "pro"
	}
	return "std"
}

func resolveKling30Duration(seconds int) (int, error) {
	if seconds == 0 {
		return 5, nil
	}
	if seconds < kling30MinDuration || seconds > kling30MaxDuration {
		return 0, domain.NewCodedError(domain.CodeInvalidParameter,
			"kling 3.0 duration must be between 3 and 15 seconds", domain.ErrValidation)
	}
	return seconds, nil
}

func clampKling25Duration(seconds int) int {
	if seconds == 0 {
		return 5
	}
	if seconds < 5 {
		return 5
	}
	if seconds > 10 {
		return 10
	}
	return seconds
}

// mapDurationToKling25 renders the duration as the string "5" or "10", the
// only two values the v2.5 endpoint accepts.
func mapDurationToKling25(seconds int) string {
	if clampKling25Duration(seconds) <= 5 {
		return "5"
	}
	return "10"
}

func mapAspectRatioToKling30(aspectRatio string) string {
	switch aspectRatio {
	case "1:1", "9:16", "16:9":
		return aspectRatio
	case "portrait":
		return "9:16"
	case "landscape":
		return "16:9"
	default:
		return "1:1"
	}
}
