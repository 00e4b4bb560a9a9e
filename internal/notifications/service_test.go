package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"soundscape/internal/config"
	"soundscape/internal/notifications"
)

type recordedRequest struct {
	body     string
	title    string
	tags     string
	priority string
}

func newRecordingServer(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			body:     string(body),
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]recordedRequest, len(requests))
		copy(out, requests)
		return out
	}
}

func serviceFor(topic string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return notifications.NewService(&cfg)
}

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	service := serviceFor("")
	ctx := context.Background()

	if err := service.NotifyJobStarted(ctx, "job-a", "/media/a.mp4"); err != nil {
		t.Fatalf("noop started: %v", err)
	}
	if err := service.NotifyJobFailed(ctx, "job-a", "boom"); err != nil {
		t.Fatalf("noop failed: %v", err)
	}
	if err := service.TestNotification(ctx); err != nil {
		t.Fatalf("noop test: %v", err)
	}
}

func TestNotifyJobStartedSendsPlainTextWithHeaders(t *testing.T) {
	server, recorded := newRecordingServer(t)
	service := serviceFor(server.URL)

	if err := service.NotifyJobStarted(context.Background(), "job-a", "/media/a.mp4"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	reqs := recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if !strings.Contains(req.body, "job-a") || !strings.Contains(req.body, "/media/a.mp4") {
		t.Fatalf("body missing job details: %q", req.body)
	}
	if req.title != "Soundscape - Job Started" {
		t.Fatalf("title: %q", req.title)
	}
	if req.tags != "soundscape,job,started" {
		t.Fatalf("tags: %q", req.tags)
	}
	if req.priority != "" {
		t.Fatalf("started notification should not set priority, got %q", req.priority)
	}
}

func TestNotifyJobCompletedCarriesSummaryAndPriority(t *testing.T) {
	server, recorded := newRecordingServer(t)
	service := serviceFor(server.URL)

	if err := service.NotifyJobCompleted(context.Background(), "job-a", "soundtrack ready: 7 tracks"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	req := recorded()[0]
	if !strings.Contains(req.body, "soundtrack ready: 7 tracks") {
		t.Fatalf("body missing summary: %q", req.body)
	}
	if req.priority != "high" {
		t.Fatalf("completed notification priority: %q", req.priority)
	}
}

func TestNotifyJobDegradedUsesDistinctTitle(t *testing.T) {
	server, recorded := newRecordingServer(t)
	service := serviceFor(server.URL)

	if err := service.NotifyJobDegraded(context.Background(), "job-a", "2 fallback, 1 failed"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	req := recorded()[0]
	if req.title != "Soundscape - Complete (degraded)" {
		t.Fatalf("title: %q", req.title)
	}
	if !strings.Contains(req.body, "substitutions") {
		t.Fatalf("body: %q", req.body)
	}
}

func TestNotifyJobFailedIncludesReason(t *testing.T) {
	server, recorded := newRecordingServer(t)
	service := serviceFor(server.URL)

	if err := service.NotifyJobFailed(context.Background(), "job-a", "story analysis failed"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	req := recorded()[0]
	if !strings.Contains(req.body, "failed: story analysis failed") {
		t.Fatalf("body: %q", req.body)
	}
	if req.priority != "high" {
		t.Fatalf("failure priority: %q", req.priority)
	}
}

func TestSendSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	service := serviceFor(server.URL)
	err := service.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}
