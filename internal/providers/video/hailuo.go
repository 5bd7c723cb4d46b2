package video

import (
	"context"
	"strconv"
	"strings"

	"genserver/internal/domain"
	"genserver/internal/providers/kie"
)

const hailuoMaxImages = 1

// hailuoCreditsTable prices by variant, duration and resolution. The 10s
// tier only renders at 768p.
var hailuoCreditsTable = map[string]map[int]map[string]int{
	"standard": {
		6:  {"768p": 125, "1080p": 200},
		10: {"768p": 200},
	},
	"pro": {
		6:  {"768p": 200, "1080p": 350},
		10: {"768p": 400},
	},
}

// HailuoAdapter serves the Hailuo 2.3 standard and pro models.
type HailuoAdapter struct {
	client *kie.Client
}

func NewHailuoAdapter(client *kie.Client) *HailuoAdapter {
	return &HailuoAdapter{client: client}
}

func (a *HailuoAdapter) CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	if _, err := a.CalculateCredits(params); err != nil {
		return "", err
	}
	images := collectImages(params, hailuoMaxImages)
	if len(images) == 0 {
		return "", domain.NewCodedError(domain.CodeRequiredFieldMissing,
			"hailuo requires an input image", domain.ErrValidation)
	}

	input := map[string]any{
		"prompt":     params.Prompt,
		"image_url":  images[0],
		"duration":   strconv.Itoa(defaultDuration(params.DurationSeconds, 6)),
		"resolution": hailuoResolution(params.Resolution),
	}
	body := map[string]any{
		"model":       params.ModelID,
		"callBackUrl": callbackURL,
		"input":       input,
	}
	return kieCreateTask(ctx, a.client, "hailuo", body)
}

func (a *HailuoAdapter) QueryTask(ctx context.Context, taskID string) (*QueryResult, error) {
	return kieQueryTask(ctx, a.client, "hailuo", taskID)
}

func (a *HailuoAdapter) CalculateCredits(params GenerationParams) (int, error) {
	duration := defaultDuration(params.DurationSeconds, 6)
	resolution := hailuoResolution(params.Resolution)

	if duration == 10 && resolution == "1080p" {
		return 0, domain.NewCodedError(domain.CodeInvalidParameter,
			"hailuo 2.3: 10s duration only supports 768p resolution", domain.ErrValidation)
	}

	variant := "standard"
	if strings.Contains(strings.ToLower(params.ModelID), "pro") {
		variant = "pro"
	}
	table := hailuoCreditsTable[variant]
	if tier, ok := table[duration]; ok {
		if credits, ok := tier[resolution]; ok {
			return credits, nil
		}
	}
	// Durations outside the published tiers scale from the 6s base.
	base, ok := table[6][resolution]
	if !ok {
		return 0, domain.NewCodedError(domain.CodeInvalidParameter,
			"hailuo 2.3: unsupported resolution "+resolution, domain.ErrValidation)
	}
	return proportionalCredits(base, 6, duration), nil
}

func hailuoResolution(resolution string) string {
	if resolution == "1080p" {
		return "1080p"
	}
	return "768p"
}
