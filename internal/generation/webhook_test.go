package generation

import (
	"errors"
	"strings"
	"testing"

	"genserver/internal/domain"
	"genserver/internal/providers/video"
)

func TestParseCallbackStateShape(t *testing.T) {
	raw := []byte(`{"code":200,"data":{"taskId":"task-1","state":"success","resultJson":"{\"resultUrls\":[\"https://cdn.example.com/a.mp4\",\"https://cdn.example.com/b.mp4\"]}"}}`)

	cb, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if cb.TaskID != "task-1" {
		t.Fatalf("taskId = %q", cb.TaskID)
	}
	if cb.State != video.TaskStateSuccess {
		t.Fatalf("state = %q, want success", cb.State)
	}
	if len(cb.ResultURLs) != 2 {
		t.Fatalf("urls = %v", cb.ResultURLs)
	}
}

func TestParseCallbackStateShapeFailure(t *testing.T) {
	raw := []byte(`{"code":200,"data":{"taskId":"task-2","state":"fail","failMsg":"content policy","failCode":"400"}}`)

	cb, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if cb.State != video.TaskStateFail {
		t.Fatalf("state = %q, want fail", cb.State)
	}
	if cb.FailMsg != "content policy" || cb.FailCode != "400" {
		t.Fatalf("failMsg = %q failCode = %q", cb.FailMsg, cb.FailCode)
	}
}

func TestParseCallbackNonSuccessStateIsFail(t *testing.T) {
	// The state-bearing shape is binary at callback time: anything that is
	// not success reports a failure.
	raw := []byte(`{"code":200,"data":{"taskId":"task-3","state":"generating"}}`)

	cb, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if cb.State != video.TaskStateFail {
		t.Fatalf("state = %q, want fail", cb.State)
	}
}

func TestParseCallbackCodeShapeSuccess(t *testing.T) {
	raw := []byte(`{"code":200,"msg":"ok","data":{"taskId":"task-4","info":{"result_urls":["https://cdn.example.com/out.png"]}}}`)

	cb, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if cb.State != video.TaskStateSuccess {
		t.Fatalf("state = %q, want success", cb.State)
	}
	if len(cb.ResultURLs) != 1 {
		t.Fatalf("urls = %v", cb.ResultURLs)
	}
}

func TestParseCallbackCodeShapeFailure(t *testing.T) {
	raw := []byte(`{"code":500,"msg":"internal error","data":{"taskId":"task-5"}}`)

	cb, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if cb.State != video.TaskStateFail {
		t.Fatalf("state = %q, want fail", cb.State)
	}
	if cb.FailMsg != "internal error" {
		t.Fatalf("failMsg = %q", cb.FailMsg)
	}
}

func TestParseCallbackCodeShapeEmptyURLsIsFailure(t *testing.T) {
	raw := []byte(`{"code":200,"data":{"taskId":"task-6","info":{"result_urls":[]}}}`)

	cb, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if cb.State != video.TaskStateFail {
		t.Fatalf("state = %q, want fail when code shape has no urls", cb.State)
	}
}

func TestParseCallbackRejectsUnknownShape(t *testing.T) {
	for _, raw := range []string{`{}`, `{"data":{}}`, `not json`, `{"code":200}`} {
		if _, err := ParseCallback([]byte(raw)); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("payload %q: err = %v, want validation error", raw, err)
		}
	}
}

func TestMaskURLHidesQueryAndPath(t *testing.T) {
	masked := maskURL("https://cdn.example.com/artifacts/secret-file.mp4?sig=very-secret-token")
	if strings.Contains(masked, "secret") {
		t.Fatalf("masked url leaks content: %q", masked)
	}
	if !strings.HasPrefix(masked, "https://cdn.example.com/") {
		t.Fatalf("masked = %q", masked)
	}
	if maskURL("://bad") != "<invalid-url>" {
		t.Fatalf("invalid url not masked")
	}
}

func TestTruncateForLog(t *testing.T) {
	long := strings.Repeat("x", 500)
	if got := truncateForLog(long); len(got) != 203 {
		t.Fatalf("len = %d, want 203", len(got))
	}
	if got := truncateForLog("short"); got != "short" {
		t.Fatalf("short strings must pass through, got %q", got)
	}
}
