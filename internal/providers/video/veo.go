package video

import (
	"context"

	"genserver/internal/providers/kie"
)

const (
	veo31FastModel   = "veo3_fast"
	veo31FastCredits = 300
)

// Veo31FastAdapter serves the Veo 3.1 Fast model. Unlike the other KIE jobs
// this endpoint takes a flat request body rather than a nested input object.
type Veo31FastAdapter struct {
	client *kie.Client
}

func NewVeo31FastAdapter(client *kie.Client) *Veo31FastAdapter {
	return &Veo31FastAdapter{client: client}
}

func (a *Veo31FastAdapter) CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (string, error) {
	images := collectImages(params, 1)

	body := map[string]any{
		"model":          veo31FastModel,
		"prompt":         params.Prompt,
		"generationType": "TEXT_2_VIDEO",
		"callBackUrl":    callbackURL,
		"aspectRatio":    mapAspectRatioToVeo(params.AspectRatio),
	}
	if len(images) > 0 {
		body["generationType"] = "FIRST_AND_LAST_FRAMES_2_VIDEO"
		body["imageUrls"] = images
	}
	return kieCreateTask(ctx, a.client, "veo31-fast", body)
}

func (a *Veo31FastAdapter) QueryTask(ctx context.Context, taskID string) (*QueryResult, error) {
	return kieQueryTask(ctx, a.client, "veo31-fast", taskID)
}

// CalculateCredits is a flat price independent of duration and resolution.
func (a *Veo31FastAdapter) CalculateCredits(GenerationParams) (int, error) {
	return veo31FastCredits, nil
}

func mapAspectRatioToVeo(aspectRatio string) string {
	switch aspectRatio {
	case "1:1":
		return "Auto"
	case "9:16", "portrait":
		return "9:16"
	case "16:9", "landscape":
		return "16:9"
	default:
		return "16:9"
	}
}
