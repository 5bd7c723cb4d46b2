package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"genserver/internal/domain"
	"genserver/internal/domain/modelcfg"
	"genserver/internal/providers/kie"
)

type recordingTransport struct {
	lastMethod string
	lastPath   string
	lastQuery  string
	lastBody   []byte
	response   string
	status     int
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.lastMethod = req.Method
	r.lastPath = req.URL.Path
	r.lastQuery = req.URL.RawQuery
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		r.lastBody = body
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(r.response)),
	}, nil
}

func newRecordingClient(t *testing.T, transport *recordingTransport) *kie.Client {
	t.Helper()
	client, err := kie.NewClient(kie.Options{
		APIKey:     "test-key",
		BaseURL:    "https://kie.test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func decodePayload(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

func TestKling25CreateTaskPicksImageModel(t *testing.T) {
	transport := &recordingTransport{response: `{"code":200,"data":{"taskId":"task-1"}}`}
	adapter := NewKlingAdapter(newRecordingClient(t, transport), nil)

	taskID, err := adapter.CreateTask(context.Background(), GenerationParams{
		ModelID:           "kling-v2.5",
		Prompt:            "a fox in the snow",
		DurationSeconds:   10,
		CharacterImageURL: "https://cdn.example.com/character.png",
		ReferenceImageURLs: []string{
			"https://cdn.example.com/ref.png",
		},
	}, "https://app.example.com/api/generation/webhook?token=abc")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if taskID != "task-1" {
		t.Fatalf("taskID = %q, want task-1", taskID)
	}
	if transport.lastPath != "/api/v1/jobs/createTask" {
		t.Fatalf("path = %q", transport.lastPath)
	}

	payload := decodePayload(t, transport.lastBody)
	if payload["model"] != kling25ImageToVideo {
		t.Fatalf("model = %v, want image-to-video variant", payload["model"])
	}
	input := payload["input"].(map[string]any)
	if input["image_url"] != "https://cdn.example.com/character.png" {
		t.Fatalf("image_url = %v, want the character image to win", input["image_url"])
	}
	if input["duration"] != "10" {
		t.Fatalf("duration = %v, want string \"10\"", input["duration"])
	}
}

func TestKling30CreateTaskBody(t *testing.T) {
	transport := &recordingTransport{response: `{"code":200,"data":{"taskId":"task-2"}}`}
	adapter := NewKlingAdapter(newRecordingClient(t, transport), nil)

	_, err := adapter.CreateTask(context.Background(), GenerationParams{
		ModelID:         "kling-3.0/video",
		Prompt:          "city at dawn",
		DurationSeconds: 8,
		AspectRatio:     "landscape",
		Mode:            "pro",
		Sound:           boolPtr(true),
	}, "https://app.example.com/api/generation/webhook?token=abc")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	payload := decodePayload(t, transport.lastBody)
	if payload["model"] != kling30CatalogID {
		t.Fatalf("model = %v", payload["model"])
	}
	input := payload["input"].(map[string]any)
	if input["aspect_ratio"] != "16:9" {
		t.Fatalf("aspect_ratio = %v, want 16:9", input["aspect_ratio"])
	}
	if input["mode"] != "pro" {
		t.Fatalf("mode = %v, want pro", input["mode"])
	}
	if input["sound"] != true {
		t.Fatalf("sound = %v, want true", input["sound"])
	}
	if _, ok := input["image_urls"]; ok {
		t.Fatalf("image_urls should be absent without input images")
	}
}

func TestCreateTaskRejectionIsProviderFailure(t *testing.T) {
	transport := &recordingTransport{response: `{"code":402,"msg":"insufficient balance"}`}
	adapter := NewKlingAdapter(newRecordingClient(t, transport), nil)

	_, err := adapter.CreateTask(context.Background(), GenerationParams{
		ModelID: "kling-v2.5",
		Prompt:  "a fox",
	}, "https://app.example.com/cb")
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want provider failure", err)
	}
	if !strings.Contains(err.Error(), "insufficient balance") {
		t.Fatalf("err = %v, want provider message preserved", err)
	}
}

func TestSoraCreateTaskResolvesVariantAndCapsImages(t *testing.T) {
	catalog := modelcfg.NewRegistry(modelcfg.Model{
		ModelID: "sora-2/image-to-video",
		ProviderIDs: map[string]string{
			"kie": "sora-2-image-to-video",
		},
	})
	transport := &recordingTransport{response: `{"code":200,"data":{"taskId":"task-3"}}`}
	adapter := NewSora2Adapter(newRecordingClient(t, transport), catalog)

	_, err := adapter.CreateTask(context.Background(), GenerationParams{
		ModelID:           "sora-2",
		Prompt:            "a storm over the sea",
		DurationSeconds:   15,
		AspectRatio:       "landscape",
		CharacterImageURL: "https://cdn.example.com/character.png",
		ReferenceImageURLs: []string{
			"https://cdn.example.com/ref-1.png",
			"https://cdn.example.com/ref-2.png",
			"https://cdn.example.com/ref-3.png",
			"https://cdn.example.com/ref-4.png",
		},
	}, "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	payload := decodePayload(t, transport.lastBody)
	if payload["model"] != "sora-2-image-to-video" {
		t.Fatalf("model = %v, want catalog-mapped id", payload["model"])
	}
	input := payload["input"].(map[string]any)
	images := input["image_urls"].([]any)
	if len(images) != 3 {
		t.Fatalf("images = %d, want capped at 3", len(images))
	}
	if images[0] != "https://cdn.example.com/character.png" {
		t.Fatalf("first image = %v, want the character image", images[0])
	}
	if input["n_frames"] != "15" {
		t.Fatalf("n_frames = %v, want \"15\"", input["n_frames"])
	}
	if input["aspect_ratio"] != "landscape" {
		t.Fatalf("aspect_ratio = %v", input["aspect_ratio"])
	}
}

func TestVeoCreateTaskFlatBody(t *testing.T) {
	transport := &recordingTransport{response: `{"code":200,"data":{"taskId":"task-4"}}`}
	adapter := NewVeo31FastAdapter(newRecordingClient(t, transport))

	_, err := adapter.CreateTask(context.Background(), GenerationParams{
		ModelID:            "veo3.1-fast",
		Prompt:             "timelapse of clouds",
		AspectRatio:        "portrait",
		ReferenceImageURLs: []string{"https://cdn.example.com/frame.png", "https://cdn.example.com/extra.png"},
	}, "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	payload := decodePayload(t, transport.lastBody)
	if payload["model"] != veo31FastModel {
		t.Fatalf("model = %v", payload["model"])
	}
	if payload["generationType"] != "FIRST_AND_LAST_FRAMES_2_VIDEO" {
		t.Fatalf("generationType = %v", payload["generationType"])
	}
	if payload["aspectRatio"] != "9:16" {
		t.Fatalf("aspectRatio = %v, want 9:16", payload["aspectRatio"])
	}
	images := payload["imageUrls"].([]any)
	if len(images) != 1 {
		t.Fatalf("imageUrls = %d, want capped at 1", len(images))
	}
	if _, ok := payload["input"]; ok {
		t.Fatalf("veo payload must be flat, found nested input")
	}
}

func TestHailuoCreateTaskRequiresImage(t *testing.T) {
	adapter := NewHailuoAdapter(nil)

	_, err := adapter.CreateTask(context.Background(), GenerationParams{
		ModelID: "hailuo-2.3",
		Prompt:  "a dragon",
	}, "https://app.example.com/cb")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestKieQueryTaskNormalizesResult(t *testing.T) {
	transport := &recordingTransport{
		response: `{"code":200,"data":{"taskId":"task-5","state":"success","resultJson":"{\"resultUrls\":[\"https://cdn.example.com/out.mp4\"]}"}}`,
	}
	adapter := NewKlingAdapter(newRecordingClient(t, transport), nil)

	result, err := adapter.QueryTask(context.Background(), "task-5")
	if err != nil {
		t.Fatalf("query task: %v", err)
	}
	if transport.lastMethod != http.MethodGet {
		t.Fatalf("method = %q", transport.lastMethod)
	}
	if transport.lastQuery != "taskId=task-5" {
		t.Fatalf("query = %q", transport.lastQuery)
	}
	if result.State != TaskStateSuccess {
		t.Fatalf("state = %q, want success", result.State)
	}
	if len(result.ResultURLs) != 1 || result.ResultURLs[0] != "https://cdn.example.com/out.mp4" {
		t.Fatalf("result urls = %v", result.ResultURLs)
	}
}

func TestKieQueryTaskUnknownStateDefaultsToWaiting(t *testing.T) {
	transport := &recordingTransport{
		response: `{"code":200,"data":{"taskId":"task-6","state":"mystery"}}`,
	}
	adapter := NewWanAdapter(newRecordingClient(t, transport))

	result, err := adapter.QueryTask(context.Background(), "task-6")
	if err != nil {
		t.Fatalf("query task: %v", err)
	}
	if result.State != TaskStateWaiting {
		t.Fatalf("state = %q, want waiting", result.State)
	}
}

func TestReplicateAdapterPredictionRoundTrip(t *testing.T) {
	transport := &recordingTransport{response: `{"id":"pred-1","status":"starting"}`}
	adapter := NewReplicateAdapter(newRecordingClient(t, transport), nil)

	taskID, err := adapter.CreateTask(context.Background(), GenerationParams{
		ModelID:         "wan-2.5",
		Prompt:          "a river",
		DurationSeconds: 5,
	}, "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if taskID != "pred-1" {
		t.Fatalf("taskID = %q", taskID)
	}
	payload := decodePayload(t, transport.lastBody)
	if payload["version"] != "wan-2.5" {
		t.Fatalf("version = %v", payload["version"])
	}
	if payload["webhook"] != "https://app.example.com/cb" {
		t.Fatalf("webhook = %v", payload["webhook"])
	}

	transport.response = `{"id":"pred-1","status":"succeeded","output":["https://replicate.delivery/out.mp4"]}`
	result, err := adapter.QueryTask(context.Background(), "pred-1")
	if err != nil {
		t.Fatalf("query task: %v", err)
	}
	if result.State != TaskStateSuccess {
		t.Fatalf("state = %q", result.State)
	}
	if transport.lastPath != "/predictions/pred-1" {
		t.Fatalf("path = %q", transport.lastPath)
	}
}

func TestRegistryLookup(t *testing.T) {
	kieClient, err := kie.NewClient(kie.Options{APIKey: "k", BaseURL: "https://kie.test"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	replicateClient, err := kie.NewClient(kie.Options{APIKey: "r", BaseURL: "https://replicate.test"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	registry := NewDefaultRegistry(kieClient, replicateClient, nil)

	if _, err := registry.Lookup("kie", "Kling-3.0/video"); err != nil {
		t.Fatalf("kie kling lookup: %v", err)
	}
	if _, err := registry.Lookup("kie", "sora-2-pro"); err != nil {
		t.Fatalf("kie sora pro lookup: %v", err)
	}
	if _, err := registry.Lookup("replicate", "anything-at-all"); err != nil {
		t.Fatalf("replicate default lookup: %v", err)
	}
	if _, err := registry.Lookup("kie", "no-such-model"); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("err = %v, want unsupported model", err)
	}
}
