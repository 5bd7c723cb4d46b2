// Package video defines the provider adapters that create and track remote
// video generation tasks and price them in credits.
package video

import (
	"context"
	"strings"
)

// TaskState is the shared vocabulary for remote task progress. Adapters map
// each provider's own wording onto these five states.
type TaskState string

const (
	TaskStateWaiting    TaskState = "waiting"
	TaskStateQueuing    TaskState = "queuing"
	TaskStateGenerating TaskState = "generating"
	TaskStateSuccess    TaskState = "success"
	TaskStateFail       TaskState = "fail"
)

// NormalizeState maps a raw provider state string onto the shared enum.
// Unrecognized states collapse to waiting, never to success.
func NormalizeState(raw string) TaskState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "succeeded", "completed":
		return TaskStateSuccess
	case "fail", "failed", "error", "canceled":
		return TaskStateFail
	case "generating", "processing", "running":
		return TaskStateGenerating
	case "queuing", "queued", "starting":
		return TaskStateQueuing
	default:
		return TaskStateWaiting
	}
}

// GenerationParams is the normalized request every adapter consumes. Each
// adapter translates it into its provider-specific payload.
type GenerationParams struct {
	Prompt             string   `json:"prompt"`
	ModelID            string   `json:"model_name"`
	TaskSubType        string   `json:"task_subtype,omitempty"`
	DurationSeconds    int      `json:"duration_seconds,omitempty"`
	Quality            string   `json:"quality,omitempty"`
	Mode               string   `json:"mode,omitempty"`
	Resolution         string   `json:"resolution,omitempty"`
	AspectRatio        string   `json:"aspect_ratio,omitempty"`
	Sound              *bool    `json:"sound,omitempty"`
	NegativePrompt     string   `json:"negative_prompt,omitempty"`
	Seed               int      `json:"seed,omitempty"`
	ReferenceImageURLs []string `json:"reference_image_urls,omitempty"`
	CharacterImageURL  string   `json:"character_image_url,omitempty"`
}

// QueryResult is the normalized outcome of a status poll.
type QueryResult struct {
	TaskID     string
	State      TaskState
	ResultURLs []string
	FailMsg    string
	FailCode   string
}

// Adapter is implemented once per provider/model family. CalculateCredits is
// pure and must never perform I/O so a caller can be quoted before creating
// the remote task.
type Adapter interface {
	CreateTask(ctx context.Context, params GenerationParams, callbackURL string) (taskID string, err error)
	QueryTask(ctx context.Context, taskID string) (*QueryResult, error)
	CalculateCredits(params GenerationParams) (int, error)
}

// collectImages merges the character image and free-form reference images
// into one deduplicated list capped at max. The character image keeps the
// first slot so truncation never drops it.
func collectImages(params GenerationParams, max int) []string {
	seen := make(map[string]struct{})
	var urls []string
	appendURL := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	appendURL(params.CharacterImageURL)
	for _, u := range params.ReferenceImageURLs {
		appendURL(u)
	}
	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	return urls
}

// proportionalCredits scales a base table entry to an unsupported duration:
// durations at or below the base price at the base cost, longer durations
// scale linearly rounded up.
func proportionalCredits(baseCredits, baseDuration, requestedDuration int) int {
	if requestedDuration <= baseDuration {
		return baseCredits
	}
	scaled := baseCredits * requestedDuration
	credits := scaled / baseDuration
	if scaled%baseDuration != 0 {
		credits++
	}
	return credits
}
