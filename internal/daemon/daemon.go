package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"soundscape/internal/config"
	"soundscape/internal/events"
	"soundscape/internal/jobs"
	"soundscape/internal/logging"
	"soundscape/internal/notifications"
	"soundscape/internal/pipeline"
)

// Daemon coordinates job intake and pipeline execution and enforces
// single-instance execution. A second daemon on the same data directory
// would defeat the one-active-job admission rule, so the lock is mandatory.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     *jobs.Registry
	orchestrator *pipeline.Orchestrator
	notifier     notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	ActiveJobID    string
	JobCounts      map[string]int
	SnapshotDBPath string
	SocketPath     string
	LockPath       string
	Store          jobs.StoreHealth
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, registry *jobs.Registry, orchestrator *pipeline.Orchestrator, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || registry == nil || orchestrator == nil {
		return nil, errors.New("daemon requires config, registry, and orchestrator")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		registry:     registry,
		orchestrator: orchestrator,
		notifier:     notifier,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock and begins accepting submissions.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another soundscape daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running.Store(true)
	d.logger.Info("soundscape daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// Stop cancels any running job, waits for pipelines to settle, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("soundscape daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"),
	)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.registry.Close()
}

// Submit registers a new job for the given source video and launches its
// pipeline. The registry's admission rule applies: a second running job is
// rejected with jobs.ConflictError.
func (d *Daemon) Submit(ctx context.Context, sourcePath string) (jobs.Job, error) {
	if !d.running.Load() {
		return jobs.Job{}, errors.New("daemon is not running")
	}
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return jobs.Job{}, errors.New("source path required")
	}

	id := uuid.NewString()
	jobCtx, cancel := context.WithCancel(d.ctx)
	job, err := d.registry.Create(ctx, id, sourcePath, cancel)
	if err != nil {
		cancel()
		return jobs.Job{}, err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		d.orchestrator.Run(jobCtx, id, sourcePath)
	}()
	return job, nil
}

// Cancel requests cooperative cancellation of a running job.
func (d *Daemon) Cancel(ctx context.Context, id string) bool {
	return d.registry.Cancel(ctx, id)
}

// Get returns the view of one job.
func (d *Daemon) Get(id string) (jobs.Job, bool) {
	return d.registry.Get(id)
}

// List returns all known jobs, newest first.
func (d *Daemon) List() []jobs.Job {
	return d.registry.List()
}

// Events returns a job's progress events after the given cursor, optionally
// blocking until new events arrive or the log seals.
func (d *Daemon) Events(ctx context.Context, id string, since int64, wait bool) ([]events.ProgressEvent, error) {
	return d.registry.FetchEvents(ctx, id, since, wait)
}

// Status reports daemon runtime diagnostics.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		JobCounts:      make(map[string]int),
		SnapshotDBPath: d.cfg.SnapshotDBPath(),
		SocketPath:     d.cfg.SocketPath(),
		LockPath:       d.lockPath,
		Store:          d.registry.Health(ctx),
	}
	if active, ok := d.registry.Active(); ok {
		status.ActiveJobID = active
	}
	for _, job := range d.registry.List() {
		status.JobCounts[string(job.Status)]++
	}
	return status
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, "notification sent", nil
}
