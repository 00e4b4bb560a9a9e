package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"soundscape/internal/daemon"
	"soundscape/internal/events"
	"soundscape/internal/ipc"
	"soundscape/internal/jobs"
	"soundscape/internal/logging"
	"soundscape/internal/pipeline"
	"soundscape/internal/plan"
	"soundscape/internal/services"
	"soundscape/internal/soundgen"
	"soundscape/internal/testsupport"
)

type stubPreparer struct{}

func (stubPreparer) Prepare(ctx context.Context, videoPath string) (services.MediaRef, error) {
	return services.MediaRef("file://" + videoPath), nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeStory(ctx context.Context, media services.MediaRef) (plan.StoryAnalysis, error) {
	return plan.StoryAnalysis{Summary: "two friends on a road trip", DurationSeconds: 60}, nil
}

type stubDesigner struct{}

func (stubDesigner) PlanSoundDesign(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) (plan.SoundDesignPlan, error) {
	return plan.SoundDesignPlan{
		Scenes: []plan.Scene{
			{Index: 0, StartSec: 0, EndSec: 60, MusicLevel: plan.MusicMedium},
		},
		Music: []plan.MusicSegment{
			{StartSec: 0, DurationSeconds: 60, Prompt: "open road guitar"},
		},
		Ambient: []plan.AmbientSegment{
			{StartSec: 0, DurationSeconds: 60, Prompt: "highway hum", Loudness: plan.LoudnessQuiet},
		},
	}, nil
}

type stubSpotter struct{}

func (stubSpotter) SpotActions(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) ([]plan.SpottedAction, error) {
	return []plan.SpottedAction{
		{TimeSeconds: 15, Label: "car door", Prompt: "car door closing", DurationSeconds: 1},
	}, nil
}

// gateGenerator optionally blocks generation until released, so tests can
// hold a job in the generating stage.
type gateGenerator struct {
	gate chan struct{}
}

func (g *gateGenerator) Generate(ctx context.Context, prompt string, durationSeconds float64, outputPath string) (soundgen.GenerationResult, error) {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return soundgen.GenerationResult{}, ctx.Err()
		}
	}
	if err := os.WriteFile(outputPath, []byte("RIFF"), 0o644); err != nil {
		return soundgen.GenerationResult{}, err
	}
	return soundgen.GenerationResult{ActualDuration: durationSeconds}, nil
}

type harness struct {
	client *ipc.Client
	source string
}

func newHarness(t *testing.T, generator soundgen.Generator) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	registry := testsupport.MustOpenRegistry(t, cfg)
	collab := pipeline.Collaborators{
		Preparer:  stubPreparer{},
		Analyzer:  stubAnalyzer{},
		Designer:  stubDesigner{},
		Spotter:   stubSpotter{},
		Generator: generator,
	}
	orch := pipeline.New(cfg, registry, collab, nil, logging.NewNop())

	d, err := daemon.New(cfg, registry, orch, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	socketPath := filepath.Join(t.TempDir(), "soundscaped.sock")
	server, err := ipc.NewServer(ctx, socketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(socketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	source := filepath.Join(cfg.Paths.MediaDir, "clip.mp4")
	testsupport.WriteFile(t, source, 1024)
	return harness{client: client, source: source}
}

// drainEvents long-polls the events RPC until a terminal event arrives.
func drainEvents(t *testing.T, client *ipc.Client, jobID string) []ipc.EventsResponse {
	t.Helper()
	var pages []ipc.EventsResponse
	after := ""
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Events(ipc.EventsRequest{JobID: jobID, AfterIndex: after, WaitMillis: 500})
		if err != nil {
			t.Fatalf("events: %v", err)
		}
		if len(resp.Events) == 0 {
			continue
		}
		pages = append(pages, *resp)
		last := resp.Events[len(resp.Events)-1]
		after = last.Index
		if last.Payload.IsTerminal() {
			return pages
		}
	}
	t.Fatal("job did not reach a terminal event in time")
	return nil
}

func TestRoundTripSubmitWatchDescribeStatus(t *testing.T) {
	h := newHarness(t, &gateGenerator{})

	submitted, err := h.client.Submit(h.source)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !submitted.Accepted || submitted.Job.ID == "" {
		t.Fatalf("submission rejected: %+v", submitted)
	}
	jobID := submitted.Job.ID

	pages := drainEvents(t, h.client, jobID)

	// Indices are sequential across pages, from "0", regardless of paging.
	idx := 0
	var lastStage string
	for _, page := range pages {
		for _, evt := range page.Events {
			if evt.Index != events.FormatIndex(int64(idx)) {
				t.Fatalf("event index %q at position %d", evt.Index, idx)
			}
			idx++
			lastStage = evt.Payload.Stage
		}
	}
	if lastStage != "complete" {
		t.Fatalf("terminal stage: %s", lastStage)
	}

	described, err := h.client.Describe(jobID)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if described.Job.Status != string(jobs.StatusComplete) {
		t.Fatalf("described status: %s", described.Job.Status)
	}
	if described.Job.Result == nil || len(described.Job.Result.Tracks) != 3 {
		t.Fatalf("described result: %+v", described.Job.Result)
	}
	if described.Job.EventCount != idx {
		t.Fatalf("event count %d, drained %d", described.Job.EventCount, idx)
	}

	status, err := h.client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.JobCounts["complete"] != 1 {
		t.Fatalf("job counts: %+v", status.JobCounts)
	}
	if status.ActiveJobID != "" {
		t.Fatalf("no job should be active, got %s", status.ActiveJobID)
	}
	if !status.Store.DatabaseReadable || status.Store.TotalJobs != 1 {
		t.Fatalf("store health: %+v", status.Store)
	}

	// Cancelling a finished job is a no-op.
	cancelled, err := h.client.Cancel(jobID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Cancelled {
		t.Fatal("cancel of a complete job should report false")
	}
}

func TestSubmitConflictReportsActiveJob(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, &gateGenerator{gate: gate})

	first, err := h.client.Submit(h.source)
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	if !first.Accepted {
		t.Fatalf("first submission rejected: %+v", first)
	}

	// Wait until the first job is busy generating behind the gate.
	waitForStage(t, h.client, first.Job.ID, "generating")

	second, err := h.client.Submit(h.source)
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}
	if second.Accepted {
		t.Fatal("second submission should be refused while first runs")
	}
	if second.ActiveJobID != first.Job.ID {
		t.Fatalf("conflict names %s, want %s", second.ActiveJobID, first.Job.ID)
	}

	cancelled, err := h.client.Cancel(first.Job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled.Cancelled {
		t.Fatal("cancel of the running job should succeed")
	}
	waitForStatus(t, h.client, first.Job.ID, jobs.StatusCancelled)

	// The slot is free again.
	third, err := h.client.Submit(h.source)
	if err != nil {
		t.Fatalf("submit third: %v", err)
	}
	if !third.Accepted {
		t.Fatalf("third submission rejected: %+v", third)
	}
	close(gate)
	waitForStatus(t, h.client, third.Job.ID, jobs.StatusComplete)
}

func TestEventsValidatesRequest(t *testing.T) {
	h := newHarness(t, &gateGenerator{})

	if _, err := h.client.Events(ipc.EventsRequest{JobID: ""}); err == nil {
		t.Fatal("empty job id should fail")
	}
	if _, err := h.client.Events(ipc.EventsRequest{JobID: "unknown"}); err == nil {
		t.Fatal("unknown job id should fail")
	}
	if _, err := h.client.Events(ipc.EventsRequest{JobID: "unknown", AfterIndex: "banana"}); err == nil {
		t.Fatal("malformed cursor should fail")
	}
	if _, err := h.client.Describe(""); err == nil {
		t.Fatal("describe without id should fail")
	}
	if _, err := h.client.Cancel(""); err == nil {
		t.Fatal("cancel without id should fail")
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	h := newHarness(t, &gateGenerator{})

	resp, err := h.client.TestNotification()
	if err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if resp.Sent {
		t.Fatal("no topic configured, nothing should be sent")
	}
	if resp.Message == "" {
		t.Fatal("response should explain why nothing was sent")
	}
}

func waitForStage(t *testing.T, client *ipc.Client, jobID, stage string) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	after := ""
	for time.Now().Before(deadline) {
		resp, err := client.Events(ipc.EventsRequest{JobID: jobID, AfterIndex: after, WaitMillis: 500})
		if err != nil {
			t.Fatalf("events: %v", err)
		}
		for _, evt := range resp.Events {
			after = evt.Index
			if evt.Payload.Stage == stage {
				return
			}
		}
	}
	t.Fatalf("job never reached stage %s", stage)
}

func waitForStatus(t *testing.T, client *ipc.Client, jobID string, status jobs.Status) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Describe(jobID)
		if err != nil {
			t.Fatalf("describe: %v", err)
		}
		if resp.Job.Status == string(status) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job never reached status %s", status)
}
