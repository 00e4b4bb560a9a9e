package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"soundscape/internal/config"
	"soundscape/internal/events"
	"soundscape/internal/jobs"
	"soundscape/internal/logging"
	"soundscape/internal/notifications"
	"soundscape/internal/plan"
	"soundscape/internal/services"
	"soundscape/internal/soundgen"
)

// MediaPreparer turns a local video path into the media reference the
// analysis collaborators consume.
type MediaPreparer interface {
	Prepare(ctx context.Context, videoPath string) (services.MediaRef, error)
}

// StoryAnalyzer produces the narrative breakdown of the video.
type StoryAnalyzer interface {
	AnalyzeStory(ctx context.Context, media services.MediaRef) (plan.StoryAnalysis, error)
}

// SoundDesigner produces scenes with mix attributes and the planned segments.
type SoundDesigner interface {
	PlanSoundDesign(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) (plan.SoundDesignPlan, error)
}

// ActionSpotter finds discrete on-screen actions worth a sound effect.
type ActionSpotter interface {
	SpotActions(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) ([]plan.SpottedAction, error)
}

// Collaborators bundles the external capabilities the orchestrator drives.
type Collaborators struct {
	Preparer   MediaPreparer
	Analyzer   StoryAnalyzer
	Designer   SoundDesigner
	Spotter    ActionSpotter
	Generator  soundgen.Generator
	Normalizer Normalizer
}

// Orchestrator runs one job through the fixed stage sequence and reports
// every transition through the job registry's event log.
type Orchestrator struct {
	cfg      *config.Config
	registry *jobs.Registry
	collab   Collaborators
	notifier notifications.Service
	logger   *slog.Logger
}

// New constructs an orchestrator. A nil Normalizer defaults to the no-op
// passthrough; a nil notifier defaults to the no-op service.
func New(cfg *config.Config, registry *jobs.Registry, collab Collaborators, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if collab.Normalizer == nil {
		collab.Normalizer = NoopNormalizer{}
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		collab:   collab,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes the stage sequence for one already-registered job. It always
// leaves the job in a terminal state: complete, error, or cancelled. Run is
// meant to be launched on its own goroutine; ctx is the job's cancellation
// handle.
func (o *Orchestrator) Run(ctx context.Context, jobID, sourcePath string) {
	// Event appends and snapshot writes must survive job cancellation,
	// otherwise the cancelled terminal event itself could fail to persist.
	persistCtx := context.WithoutCancel(ctx)
	ctx = services.WithJobID(ctx, jobID)
	logger := o.logger.With(logging.String(logging.FieldJobID, jobID))
	trailDir := o.cfg.JobLogDir(jobID)

	if err := o.notifier.NotifyJobStarted(persistCtx, jobID, sourcePath); err != nil {
		logger.Debug("job started notification failed", logging.Error(err))
	}

	// upload
	if o.checkpoint(ctx, persistCtx, jobID, logger) {
		return
	}
	o.emit(persistCtx, jobID, StageUpload, stageStart(StageUpload), "preparing source video", logger)
	media, err := o.collab.Preparer.Prepare(ctx, sourcePath)
	if err != nil {
		o.fail(persistCtx, jobID, StageUpload, err, logger)
		return
	}
	o.trail(trailDir, 1, StageUpload, map[string]string{"media_ref": string(media)}, logger)

	// story analysis
	if o.checkpoint(ctx, persistCtx, jobID, logger) {
		return
	}
	o.emit(persistCtx, jobID, StageStoryAnalysis, stageStart(StageStoryAnalysis), "analyzing story", logger)
	analysis, err := o.collab.Analyzer.AnalyzeStory(ctx, media)
	if err != nil {
		o.fail(persistCtx, jobID, StageStoryAnalysis, err, logger)
		return
	}
	o.trail(trailDir, 2, StageStoryAnalysis, analysis, logger)

	// sound design planning
	if o.checkpoint(ctx, persistCtx, jobID, logger) {
		return
	}
	o.emit(persistCtx, jobID, StageSoundDesign, stageStart(StageSoundDesign), "planning sound design", logger)
	design, err := o.collab.Designer.PlanSoundDesign(ctx, media, analysis)
	if err != nil {
		o.fail(persistCtx, jobID, StageSoundDesign, err, logger)
		return
	}
	o.trail(trailDir, 3, StageSoundDesign, design, logger)

	// action spotting, optional and non-fatal
	var actions []plan.SpottedAction
	if o.cfg.Analysis.SpotActions && o.collab.Spotter != nil {
		if o.checkpoint(ctx, persistCtx, jobID, logger) {
			return
		}
		o.emit(persistCtx, jobID, StageActionSpotting, stageStart(StageActionSpotting), "spotting actions", logger)
		actions, err = o.collab.Spotter.SpotActions(ctx, media, analysis)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				o.cancelTerminal(persistCtx, jobID, logger)
				return
			}
			// The soundtrack is still viable without effects.
			logger.Warn("action spotting failed, continuing without sound effects",
				logging.String(logging.FieldStage, StageActionSpotting),
				logging.Error(err),
			)
			actions = nil
		} else {
			o.trail(trailDir, 4, StageActionSpotting, map[string]any{"actions": actions}, logger)
		}
	}

	// generation fan-out
	if o.checkpoint(ctx, persistCtx, jobID, logger) {
		return
	}
	requests := plan.BuildRequests(design, actions)
	o.emit(persistCtx, jobID, StageGenerating, stageStart(StageGenerating),
		fmt.Sprintf("generating %d tracks", len(requests)), logger)

	runner := soundgen.NewRunner(o.collab.Generator, o.cfg.Paths.OutputDir, o.cfg.AudioGen.MaxAttempts, o.logger)
	report, tracks, err := runner.Run(ctx, requests, design.Scenes, func(completed, planned, failed int) {
		message := fmt.Sprintf("generated %d/%d tracks", completed, planned)
		if failed > 0 {
			message = fmt.Sprintf("%s (%d failed)", message, failed)
		}
		o.emit(persistCtx, jobID, StageGenerating, generationProgress(completed, planned), message, logger)
	})
	if err != nil {
		// The runner only errors on cancellation.
		o.cancelTerminal(persistCtx, jobID, logger)
		return
	}
	o.trail(trailDir, 5, StageGenerating, report, logger)

	if o.cfg.Pipeline.NormalizeLoudness {
		normalized, err := o.collab.Normalizer.Normalize(ctx, tracks, o.cfg.Pipeline.TargetLUFS)
		if err != nil {
			logger.Warn("loudness normalization failed, keeping unnormalized tracks", logging.Error(err))
		} else {
			tracks = normalized
		}
	}

	if o.checkpoint(ctx, persistCtx, jobID, logger) {
		return
	}
	o.complete(persistCtx, jobID, report, tracks, logger)
}

// checkpoint observes cancellation at a stage boundary. It returns true when
// the job must stop, recording the cancelled terminal event unless the cancel
// path already sealed the log.
func (o *Orchestrator) checkpoint(ctx, persistCtx context.Context, jobID string, logger *slog.Logger) bool {
	if job, ok := o.registry.Get(jobID); ok && job.Status != jobs.StatusRunning {
		return true
	}
	if ctx.Err() != nil {
		o.cancelTerminal(persistCtx, jobID, logger)
		return true
	}
	return false
}

// emit appends a non-terminal progress event. Append failures mean the job
// already terminated (typically a cancel racing a stage boundary); they are
// logged and swallowed.
func (o *Orchestrator) emit(ctx context.Context, jobID, stage string, progress float64, message string, logger *slog.Logger) {
	_, err := o.registry.AddEvent(ctx, jobID, events.Payload{
		Stage:    stage,
		Progress: progress,
		Message:  message,
	})
	if err != nil {
		if errors.Is(err, events.ErrSealed) {
			logger.Debug("progress event dropped, log sealed",
				logging.String(logging.FieldStage, stage),
			)
			return
		}
		logger.Warn("progress event append failed",
			logging.String(logging.FieldStage, stage),
			logging.Error(err),
		)
	}
}

// fail records the error terminal event and notifies. A cancellation that
// surfaced as a stage error is recorded as cancelled instead; the two states
// must never be conflated.
func (o *Orchestrator) fail(persistCtx context.Context, jobID, stage string, cause error, logger *slog.Logger) {
	if errors.Is(cause, context.Canceled) {
		o.cancelTerminal(persistCtx, jobID, logger)
		return
	}
	message := services.Message(cause)
	logger.Error("stage failed",
		logging.String(logging.FieldStage, stage),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "job_failed"),
	)
	_, err := o.registry.AddEvent(persistCtx, jobID, events.Payload{
		Stage:    events.StageError,
		Progress: stageStart(stage),
		Message:  fmt.Sprintf("%s failed: %s", stage, message),
		Error:    message,
	})
	if err != nil && !errors.Is(err, events.ErrSealed) {
		logger.Warn("error event append failed", logging.Error(err))
	}
	if err := o.notifier.NotifyJobFailed(persistCtx, jobID, message); err != nil {
		logger.Debug("job failed notification failed", logging.Error(err))
	}
}

// cancelTerminal records the cancelled terminal event if the cancel path has
// not already done so.
func (o *Orchestrator) cancelTerminal(persistCtx context.Context, jobID string, logger *slog.Logger) {
	_, err := o.registry.AddEvent(persistCtx, jobID, events.Payload{
		Stage:    events.StageCancelled,
		Progress: 1,
		Message:  "cancelled by user",
	})
	if err != nil && !errors.Is(err, events.ErrSealed) {
		logger.Warn("cancelled event append failed", logging.Error(err))
	}
	logger.Info("job cancelled",
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	if err := o.notifier.NotifyJobCancelled(persistCtx, jobID); err != nil {
		logger.Debug("job cancelled notification failed", logging.Error(err))
	}
}

// complete records the terminal complete event carrying the final result.
func (o *Orchestrator) complete(persistCtx context.Context, jobID string, report soundgen.Report, tracks []soundgen.Track, logger *slog.Logger) {
	totals := report.Totals()
	summary := fmt.Sprintf("soundtrack ready: %d tracks", len(tracks))
	if report.Degraded() {
		summary = fmt.Sprintf("soundtrack ready: %d tracks (%d fallback, %d failed)",
			len(tracks), totals.Fallback, totals.Failed)
	}

	result := jobs.Result{
		Tracks:  tracks,
		Report:  report,
		Summary: summary,
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		o.fail(persistCtx, jobID, StageGenerating, fmt.Errorf("encode result: %w", err), logger)
		return
	}

	_, err = o.registry.AddEvent(persistCtx, jobID, events.Payload{
		Stage:    events.StageComplete,
		Progress: 1,
		Message:  summary,
		Result:   encoded,
	})
	if err != nil {
		if !errors.Is(err, events.ErrSealed) {
			logger.Error("complete event append failed", logging.Error(err))
		}
		return
	}
	logger.Info("job complete",
		logging.Int("tracks", len(tracks)),
		logging.Int("fallback", totals.Fallback),
		logging.Int("failed", totals.Failed),
		logging.String(logging.FieldEventType, "job_complete"),
	)

	notify := o.notifier.NotifyJobCompleted
	if report.Degraded() {
		notify = o.notifier.NotifyJobDegraded
	}
	if err := notify(persistCtx, jobID, summary); err != nil {
		logger.Debug("job completed notification failed", logging.Error(err))
	}
}

func (o *Orchestrator) trail(dir string, seq int, stage string, value any, logger *slog.Logger) {
	if err := writeTrail(dir, seq, stage, value); err != nil {
		logger.Debug("debug trail write failed",
			logging.String(logging.FieldStage, stage),
			logging.Error(err),
		)
	}
}
