package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"soundscape/internal/events"
	"soundscape/internal/jobs"
	"soundscape/internal/logging"
	"soundscape/internal/pipeline"
	"soundscape/internal/plan"
	"soundscape/internal/services"
	"soundscape/internal/soundgen"
	"soundscape/internal/testsupport"
)

type stubPreparer struct {
	err error
}

func (s stubPreparer) Prepare(ctx context.Context, videoPath string) (services.MediaRef, error) {
	if s.err != nil {
		return "", s.err
	}
	return services.MediaRef("file://" + videoPath), nil
}

type stubAnalyzer struct {
	err error
}

func (s stubAnalyzer) AnalyzeStory(ctx context.Context, media services.MediaRef) (plan.StoryAnalysis, error) {
	if s.err != nil {
		return plan.StoryAnalysis{}, s.err
	}
	return plan.StoryAnalysis{Summary: "a chase through the woods", DurationSeconds: 90}, nil
}

type stubDesigner struct {
	design plan.SoundDesignPlan
	err    error
	// hook runs before returning, with the job's own context.
	hook func(ctx context.Context) error
}

func (s *stubDesigner) PlanSoundDesign(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) (plan.SoundDesignPlan, error) {
	if s.hook != nil {
		if err := s.hook(ctx); err != nil {
			return plan.SoundDesignPlan{}, err
		}
	}
	if s.err != nil {
		return plan.SoundDesignPlan{}, s.err
	}
	return s.design, nil
}

type stubSpotter struct {
	actions []plan.SpottedAction
	err     error
	called  bool
}

func (s *stubSpotter) SpotActions(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) ([]plan.SpottedAction, error) {
	s.called = true
	return s.actions, s.err
}

type fileGenerator struct{}

func (fileGenerator) Generate(ctx context.Context, prompt string, durationSeconds float64, outputPath string) (soundgen.GenerationResult, error) {
	if err := os.WriteFile(outputPath, []byte("RIFF"), 0o644); err != nil {
		return soundgen.GenerationResult{}, err
	}
	return soundgen.GenerationResult{ActualDuration: durationSeconds}, nil
}

func testDesign() plan.SoundDesignPlan {
	return plan.SoundDesignPlan{
		Scenes: []plan.Scene{
			{Index: 0, StartSec: 0, EndSec: 45, MusicLevel: plan.MusicMedium},
			{Index: 1, StartSec: 45, EndSec: 90, Dialogue: true, MusicLevel: plan.MusicLow},
		},
		Music: []plan.MusicSegment{
			{StartSec: 0, DurationSeconds: 45, Prompt: "driving percussion", FallbackPrompt: "fast drums"},
			{StartSec: 45, DurationSeconds: 45, Skip: true},
		},
		Ambient: []plan.AmbientSegment{
			{StartSec: 0, DurationSeconds: 90, Prompt: "wind through trees", Loudness: plan.LoudnessQuiet, Loop: true},
		},
	}
}

func testActions() []plan.SpottedAction {
	return []plan.SpottedAction{
		{TimeSeconds: 10, Label: "branch snap", Prompt: "branch snapping", DurationSeconds: 1},
		{TimeSeconds: 30, Label: "splash", Prompt: "river splash", DurationSeconds: 2},
		{TimeSeconds: 55, Label: "dog bark", Prompt: "dog barking", DurationSeconds: 2},
		{TimeSeconds: 80, Label: "horn", Prompt: "distant horn", DurationSeconds: 3},
	}
}

type fixture struct {
	registry *jobs.Registry
	orch     *pipeline.Orchestrator
}

func newFixture(t *testing.T, collab pipeline.Collaborators, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	registry := testsupport.MustOpenRegistry(t, cfg)
	orch := pipeline.New(cfg, registry, collab, nil, logging.NewNop())
	return fixture{registry: registry, orch: orch}
}

func defaultCollaborators(spotter *stubSpotter) pipeline.Collaborators {
	return pipeline.Collaborators{
		Preparer:  stubPreparer{},
		Analyzer:  stubAnalyzer{},
		Designer:  &stubDesigner{design: testDesign()},
		Spotter:   spotter,
		Generator: fileGenerator{},
	}
}

func runJob(t *testing.T, f fixture, jobID string) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if _, err := f.registry.Create(context.Background(), jobID, "/media/clip.mp4", cancel); err != nil {
		t.Fatalf("create job: %v", err)
	}
	f.orch.Run(ctx, jobID, "/media/clip.mp4")
	return cancel
}

func TestRunHappyPathReachesCompleteWithResult(t *testing.T) {
	spotter := &stubSpotter{actions: testActions()}
	f := newFixture(t, defaultCollaborators(spotter))
	runJob(t, f, "job-a")

	job, ok := f.registry.Get("job-a")
	if !ok || job.Status != jobs.StatusComplete {
		t.Fatalf("job status: %v %s", ok, job.Status)
	}
	if !spotter.called {
		t.Fatal("spotter was never consulted")
	}
	if job.Result == nil {
		t.Fatal("complete job must carry a result")
	}
	// 2 music (one silent placeholder) + 1 ambient + 4 sfx.
	if len(job.Result.Tracks) != 7 {
		t.Fatalf("expected 7 tracks, got %d", len(job.Result.Tracks))
	}
	totals := job.Result.Report.Totals()
	if totals.Planned != 7 || totals.Succeeded != 7 {
		t.Fatalf("report totals: %+v", totals)
	}
	if !strings.Contains(job.Result.Summary, "soundtrack ready: 7 tracks") {
		t.Fatalf("summary: %q", job.Result.Summary)
	}
}

func TestRunEmitsOrderedMonotonicEvents(t *testing.T) {
	spotter := &stubSpotter{actions: testActions()}
	f := newFixture(t, defaultCollaborators(spotter))
	runJob(t, f, "job-a")

	evts, err := f.registry.EventsAfter("job-a", -1)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) == 0 {
		t.Fatal("no events recorded")
	}

	wantPrefix := []string{
		pipeline.StageUpload,
		pipeline.StageStoryAnalysis,
		pipeline.StageSoundDesign,
		pipeline.StageActionSpotting,
		pipeline.StageGenerating,
	}
	for i, stage := range wantPrefix {
		if evts[i].Payload.Stage != stage {
			t.Fatalf("event %d: stage %s, want %s", i, evts[i].Payload.Stage, stage)
		}
	}

	last := evts[len(evts)-1]
	if last.Payload.Stage != events.StageComplete || last.Payload.Progress != 1 {
		t.Fatalf("last event: %+v", last.Payload)
	}
	var result jobs.Result
	if err := json.Unmarshal(last.Payload.Result, &result); err != nil {
		t.Fatalf("decode result payload: %v", err)
	}
	if len(result.Tracks) != 7 {
		t.Fatalf("result payload tracks: %d", len(result.Tracks))
	}

	prev := -1.0
	for i, evt := range evts {
		if evt.Payload.Progress < prev {
			t.Fatalf("progress regressed at event %d: %v -> %v", i, prev, evt.Payload.Progress)
		}
		prev = evt.Payload.Progress
	}

	// Exactly one terminal event.
	terminals := 0
	for _, evt := range evts {
		if evt.Payload.IsTerminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminals)
	}
}

func TestRunUploadFailureTerminatesInError(t *testing.T) {
	collab := defaultCollaborators(&stubSpotter{})
	collab.Preparer = stubPreparer{err: services.Wrap(services.ErrNotFound, "uploading", "prepare", "source video missing", nil)}
	f := newFixture(t, collab)
	runJob(t, f, "job-a")

	job, _ := f.registry.Get("job-a")
	if job.Status != jobs.StatusError {
		t.Fatalf("status: %s", job.Status)
	}
	evts, _ := f.registry.EventsAfter("job-a", -1)
	last := evts[len(evts)-1]
	if last.Payload.Stage != events.StageError {
		t.Fatalf("last event stage: %s", last.Payload.Stage)
	}
	if !strings.Contains(last.Payload.Message, "upload failed") {
		t.Fatalf("error message: %q", last.Payload.Message)
	}
	if !strings.Contains(last.Payload.Error, "source video missing") {
		t.Fatalf("error detail: %q", last.Payload.Error)
	}
}

func TestRunAnalysisFailureTerminatesInError(t *testing.T) {
	collab := defaultCollaborators(&stubSpotter{})
	collab.Analyzer = stubAnalyzer{err: errors.New("model returned malformed payload")}
	f := newFixture(t, collab)
	runJob(t, f, "job-a")

	job, _ := f.registry.Get("job-a")
	if job.Status != jobs.StatusError {
		t.Fatalf("status: %s", job.Status)
	}
	evts, _ := f.registry.EventsAfter("job-a", -1)
	last := evts[len(evts)-1]
	if !strings.Contains(last.Payload.Message, "story_analysis failed") {
		t.Fatalf("error message: %q", last.Payload.Message)
	}
}

func TestRunSpotterFailureIsNonFatal(t *testing.T) {
	spotter := &stubSpotter{err: errors.New("spotting quota exhausted")}
	f := newFixture(t, defaultCollaborators(spotter))
	runJob(t, f, "job-a")

	job, _ := f.registry.Get("job-a")
	if job.Status != jobs.StatusComplete {
		t.Fatalf("status: %s, want complete despite spotter failure", job.Status)
	}
	// 2 music + 1 ambient, no sfx.
	if len(job.Result.Tracks) != 3 {
		t.Fatalf("expected 3 tracks without sfx, got %d", len(job.Result.Tracks))
	}
	for _, track := range job.Result.Tracks {
		if track.Type == plan.TrackSFX {
			t.Fatal("no sfx tracks expected after spotter failure")
		}
	}
}

func TestRunSpotterDisabledByConfig(t *testing.T) {
	spotter := &stubSpotter{actions: testActions()}
	f := newFixture(t, defaultCollaborators(spotter), testsupport.WithSpotActions(false))
	runJob(t, f, "job-a")

	if spotter.called {
		t.Fatal("spotter must not run when disabled")
	}
	job, _ := f.registry.Get("job-a")
	if job.Status != jobs.StatusComplete {
		t.Fatalf("status: %s", job.Status)
	}
	if len(job.Result.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(job.Result.Tracks))
	}
}

func TestRunCancellationRecordsSingleCancelledEvent(t *testing.T) {
	collab := defaultCollaborators(&stubSpotter{actions: testActions()})
	var f fixture
	designer := &stubDesigner{design: testDesign()}
	designer.hook = func(ctx context.Context) error {
		// Cancel arrives mid stage; the registry seals the log first.
		f.registry.Cancel(context.Background(), "job-a")
		return ctx.Err()
	}
	collab.Designer = designer
	f = newFixture(t, collab)
	runJob(t, f, "job-a")

	job, _ := f.registry.Get("job-a")
	if job.Status != jobs.StatusCancelled {
		t.Fatalf("status: %s", job.Status)
	}
	evts, _ := f.registry.EventsAfter("job-a", -1)
	terminals := 0
	for _, evt := range evts {
		if evt.Payload.IsTerminal() {
			terminals++
			if evt.Payload.Stage != events.StageCancelled {
				t.Fatalf("terminal stage: %s", evt.Payload.Stage)
			}
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminals)
	}
}

func TestRunPlaceholderTrackForSkippedSegment(t *testing.T) {
	f := newFixture(t, defaultCollaborators(&stubSpotter{}))
	runJob(t, f, "job-a")

	job, _ := f.registry.Get("job-a")
	if job.Result == nil {
		t.Fatal("missing result")
	}
	var placeholder *soundgen.Track
	for i := range job.Result.Tracks {
		track := &job.Result.Tracks[i]
		if track.Type == plan.TrackMusic && track.StartSec == 45 {
			placeholder = track
		}
	}
	if placeholder == nil {
		t.Fatal("placeholder track missing")
	}
	if placeholder.FilePath != "" || placeholder.Volume != 0 {
		t.Fatalf("placeholder must be silent and fileless: %+v", placeholder)
	}
}
