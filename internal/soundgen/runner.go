package soundgen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"soundscape/internal/logging"
	"soundscape/internal/mix"
	"soundscape/internal/plan"
)

// GenerationResult is what the external capability reports for one call.
type GenerationResult struct {
	ActualDuration float64
	Loop           bool
}

// Generator is the external audio generation capability. Implementations
// must be safely retryable: a retry overwriting the same output path is
// correct.
type Generator interface {
	Generate(ctx context.Context, prompt string, durationSeconds float64, outputPath string) (GenerationResult, error)
}

// ProgressFunc receives one call per settled task with the running counts.
// Calls are serialized through a single consumer; implementations need no
// locking of their own.
type ProgressFunc func(completed, planned, failed int)

// Runner fans out planned generation requests against a Generator.
type Runner struct {
	generator   Generator
	outputDir   string
	maxAttempts int
	logger      *slog.Logger
}

// NewRunner constructs a fan-out runner. maxAttempts is the per-prompt
// attempt bound; values below 1 are clamped to 1.
func NewRunner(generator Generator, outputDir string, maxAttempts int, logger *slog.Logger) *Runner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Runner{
		generator:   generator,
		outputDir:   outputDir,
		maxAttempts: maxAttempts,
		logger:      logging.NewComponentLogger(logger, "soundgen"),
	}
}

// Run launches every request concurrently, waits for all of them to settle,
// and returns the aggregate report plus the ordered track list. Individual
// failures never abort siblings; Run only returns an error when the context
// is cancelled before the fan-out settles.
func (r *Runner) Run(ctx context.Context, requests []plan.Request, scenes []plan.Scene, progress ProgressFunc) (Report, []Track, error) {
	planned := len(requests)
	if planned == 0 {
		return buildReport(nil), nil, nil
	}

	results := make(chan Outcome, planned)
	group, taskCtx := errgroup.WithContext(ctx)
	for _, req := range requests {
		req := req
		group.Go(func() error {
			results <- r.runOne(taskCtx, req, scenes)
			return nil
		})
	}
	go func() {
		_ = group.Wait()
		close(results)
	}()

	// Single consumer: keeps the completion counter and progress emission
	// exact no matter which external call returns first.
	outcomes := make([]Outcome, 0, planned)
	completed := 0
	failed := 0
	for outcome := range results {
		outcomes = append(outcomes, outcome)
		completed++
		if outcome.Status == OutcomeFailed {
			failed++
		}
		if progress != nil {
			progress(completed, planned, failed)
		}
	}

	if err := ctx.Err(); err != nil {
		return Report{}, nil, err
	}

	// Completion order is nondeterministic; report and tracks follow the
	// request submission order for stable output.
	order := make(map[string]int, planned)
	for i, req := range requests {
		order[req.ID] = i
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return order[outcomes[i].RequestID] < order[outcomes[j].RequestID]
	})

	tracks := make([]Track, 0, planned)
	for _, outcome := range outcomes {
		if outcome.Track != nil {
			tracks = append(tracks, *outcome.Track)
		}
	}
	return buildReport(outcomes), tracks, nil
}

func (r *Runner) runOne(ctx context.Context, req plan.Request, scenes []plan.Scene) Outcome {
	logger := r.logger.With(
		logging.String("request_id", req.ID),
		logging.String(logging.FieldTrackType, string(req.Type)),
	)

	if req.Skip {
		// Intentionally silent segment: a placeholder track keeps the
		// timeline slot without touching the generator.
		logger.Debug("skip-flagged request materialized as silent placeholder")
		track := r.materialize(req, "", GenerationResult{Loop: req.Loop}, scenes)
		return Outcome{
			RequestID: req.ID,
			Type:      req.Type,
			Status:    OutcomeSuccess,
			Track:     &track,
		}
	}

	outputPath := filepath.Join(r.outputDir, fmt.Sprintf("%s.wav", req.ID))
	attempt := func(prompt string) (GenerationResult, error) {
		return r.generator.Generate(ctx, prompt, req.DurationSeconds, outputPath)
	}

	var lastErr error
	retries := 0
	for i := 0; i < r.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		result, err := attempt(req.Prompt)
		if err == nil {
			track := r.materialize(req, outputPath, result, scenes)
			return Outcome{
				RequestID: req.ID,
				Type:      req.Type,
				Status:    OutcomeSuccess,
				Track:     &track,
				Retries:   retries,
			}
		}
		lastErr = err
		retries++
		logger.Warn("generation attempt failed",
			logging.Int("attempt", i+1),
			logging.Error(err),
		)
	}

	fallback := strings.TrimSpace(req.FallbackPrompt)
	if fallback != "" {
		for i := 0; i < r.maxAttempts; i++ {
			if err := ctx.Err(); err != nil {
				lastErr = err
				break
			}
			result, err := attempt(fallback)
			if err == nil {
				logger.Info("fallback prompt succeeded",
					logging.Int("retries", retries),
				)
				track := r.materialize(req, outputPath, result, scenes)
				return Outcome{
					RequestID:  req.ID,
					Type:       req.Type,
					Status:     OutcomeFallback,
					Track:      &track,
					Retries:    retries,
					UsedPrompt: fallback,
				}
			}
			lastErr = err
			retries++
			logger.Warn("fallback generation attempt failed",
				logging.Int("attempt", i+1),
				logging.Error(err),
			)
		}
	}

	errMsg := "generation failed"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	logger.Error("generation request exhausted all attempts",
		logging.Int("retries", retries),
		logging.Error(lastErr),
		logging.String(logging.FieldEventType, "generation_failed"),
	)
	return Outcome{
		RequestID: req.ID,
		Type:      req.Type,
		Status:    OutcomeFailed,
		Retries:   retries,
		Error:     errMsg,
	}
}

func (r *Runner) materialize(req plan.Request, filePath string, result GenerationResult, scenes []plan.Scene) Track {
	return Track{
		ID:                uuid.NewString(),
		Type:              req.Type,
		FilePath:          filePath,
		StartSec:          req.StartSec,
		RequestedDuration: req.DurationSeconds,
		ActualDuration:    result.ActualDuration,
		Loop:              result.Loop || req.Loop,
		Volume:            mix.GainFor(req, scenes),
		Label:             req.Label,
		Prompt:            req.Prompt,
	}
}
