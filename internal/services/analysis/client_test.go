package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"soundscape/internal/plan"
	"soundscape/internal/services"
	"soundscape/internal/services/analysis"
)

func storyFixture() plan.StoryAnalysis {
	return plan.StoryAnalysis{Summary: "a heist gone wrong", DurationSeconds: 120}
}

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}, "finish_reason": "stop"},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

func quickPolicy(attempts int) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleeper:     func(time.Duration) {},
	}
}

func newTestClient(serverURL string, attempts int) *analysis.Client {
	return analysis.NewClient(analysis.Config{
		APIKey:  "sk-test",
		BaseURL: serverURL,
		Model:   "gpt-4o-mini",
	}, analysis.WithRetryPolicy(quickPolicy(attempts)))
}

func TestAnalyzeStoryDecodesCompletion(t *testing.T) {
	var gotModel string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model          string            `json:"model"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("response_format: %+v", req.ResponseFormat)
		}
		_, _ = w.Write(completionBody(t, `{"summary":"a heist gone wrong","duration_seconds":120}`))
	}))
	t.Cleanup(server.Close)

	result, err := newTestClient(server.URL, 1).AnalyzeStory(context.Background(), "media/abc")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Summary != "a heist gone wrong" || result.DurationSeconds != 120 {
		t.Fatalf("unexpected analysis: %+v", result)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization: %q", gotAuth)
	}
	if gotModel != "gpt-4o-mini" {
		t.Fatalf("model: %q", gotModel)
	}
}

func TestPlanSoundDesignHandlesFencedPayload(t *testing.T) {
	fenced := "```json\n{\"scenes\":[{\"index\":0,\"start_seconds\":0,\"end_seconds\":60,\"music_level\":\"high\"}],\"music\":[],\"ambient\":[]}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, fenced))
	}))
	t.Cleanup(server.Close)

	design, err := newTestClient(server.URL, 1).PlanSoundDesign(context.Background(), "media/abc", storyFixture())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(design.Scenes) != 1 || design.Scenes[0].EndSec != 60 {
		t.Fatalf("unexpected design: %+v", design)
	}
}

func TestSpotActionsDecodesActionList(t *testing.T) {
	payload := `{"actions":[{"time_seconds":12,"label":"gunshot","prompt":"single gunshot","duration_seconds":1}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, payload))
	}))
	t.Cleanup(server.Close)

	actions, err := newTestClient(server.URL, 1).SpotActions(context.Background(), "media/abc", storyFixture())
	if err != nil {
		t.Fatalf("spot: %v", err)
	}
	if len(actions) != 1 || actions[0].Label != "gunshot" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestCompleteJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(completionBody(t, `{"summary":"ok","duration_seconds":5}`))
	}))
	t.Cleanup(server.Close)

	result, err := newTestClient(server.URL, 3).AnalyzeStory(context.Background(), "media/abc")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Summary != "ok" {
		t.Fatalf("unexpected analysis: %+v", result)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestCompleteJSONDoesNotRetryAPIErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := json.Marshal(map[string]any{
			"error": map[string]string{"message": "model not available"},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(server.URL, 3).AnalyzeStory(context.Background(), "media/abc")
	if err == nil {
		t.Fatal("expected api error")
	}
	if calls.Load() != 1 {
		t.Fatalf("api errors must not retry, got %d attempts", calls.Load())
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := analysis.NewClient(analysis.Config{BaseURL: "http://localhost:1"})
	_, err := client.AnalyzeStory(context.Background(), "media/abc")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMalformedModelPayloadIsExternalToolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, "sorry, I cannot help with that"))
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(server.URL, 1).AnalyzeStory(context.Background(), "media/abc")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
