package daemon

import (
	"fmt"
	"log/slog"

	"soundscape/internal/config"
	"soundscape/internal/jobs"
	"soundscape/internal/notifications"
	"soundscape/internal/pipeline"
	"soundscape/internal/services/analysis"
	"soundscape/internal/services/audiogen"
	"soundscape/internal/services/mediaprep"
)

// Bootstrap opens the snapshot store, recovers the job registry, wires the
// concrete service clients into the pipeline, and returns a ready daemon.
func Bootstrap(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	store, err := jobs.OpenStore(cfg.SnapshotDBPath())
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	registry, err := jobs.Open(store, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open job registry: %w", err)
	}

	analysisClient := analysis.NewClient(analysis.Config{
		APIKey:           cfg.Analysis.APIKey,
		BaseURL:          cfg.Analysis.BaseURL,
		Model:            cfg.Analysis.Model,
		TimeoutSeconds:   cfg.Analysis.TimeoutSeconds,
		RetryMaxAttempts: cfg.Analysis.RetryMaxAttempts,
	})
	collab := pipeline.Collaborators{
		Preparer: mediaprep.NewClient(mediaprep.Config{
			BaseURL:        cfg.MediaPrep.BaseURL,
			TimeoutSeconds: cfg.MediaPrep.TimeoutSeconds,
		}),
		Analyzer: analysisClient,
		Designer: analysisClient,
		Spotter:  analysisClient,
		Generator: audiogen.NewClient(audiogen.Config{
			APIKey:         cfg.AudioGen.APIKey,
			BaseURL:        cfg.AudioGen.BaseURL,
			TimeoutSeconds: cfg.AudioGen.TimeoutSeconds,
		}),
	}

	notifier := notifications.NewService(cfg)
	orchestrator := pipeline.New(cfg, registry, collab, notifier, logger)
	return New(cfg, registry, orchestrator, notifier, logger)
}
