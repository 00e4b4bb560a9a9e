package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"soundscape/internal/events"
	"soundscape/internal/logging"
)

type jobState struct {
	id         string
	sourcePath string
	status     Status
	createdAt  time.Time
	updatedAt  time.Time
	log        *events.Log
	result     *Result
	cancel     context.CancelFunc
	cancelSent bool
}

// Registry is the single owner of all job state. It enforces the one
// active job admission rule and writes a snapshot through to disk on every
// event append.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*jobState
	active *ActiveSlot
	store  *SnapshotStore
	logger *slog.Logger
}

// Open loads every persisted job from the snapshot store and applies the
// restart correction rule: a job found in running state is forced to error
// with a synthetic terminal event, because no component can still be
// producing progress for it. No job remains running across a process
// boundary.
func Open(store *SnapshotStore, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		jobs:   make(map[string]*jobState),
		active: NewActiveSlot(),
		store:  store,
		logger: logging.NewComponentLogger(logger, "job-registry"),
	}

	snaps, err := store.LoadAll(context.Background())
	if err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		state, err := restoreState(snap)
		if err != nil {
			return nil, err
		}
		if state.status == StatusRunning {
			r.forceRestartError(state)
		}
		r.jobs[state.id] = state
	}
	return r, nil
}

// forceRestartError is the centralized recovery correction. It must stay
// the only path that repairs a running job found at startup.
func (r *Registry) forceRestartError(state *jobState) {
	evt, err := state.log.Append(events.Payload{
		Stage:    events.StageError,
		Progress: 1,
		Message:  RestartReason,
		Error:    RestartReason,
	})
	if err != nil {
		// A sealed log with a running status means the snapshot caught the
		// terminal event but not the status; trust the log.
		r.logger.Warn("restart recovery found sealed log for running job",
			logging.String(logging.FieldJobID, state.id),
			logging.Error(err),
		)
	} else {
		state.updatedAt = evt.Timestamp
	}
	state.status = StatusError
	r.persist(context.Background(), state)
	r.logger.Info("forced interrupted job to error on startup",
		logging.String(logging.FieldJobID, state.id),
		logging.String(logging.FieldEventType, "restart_recovery"),
	)
}

func restoreState(snap Snapshot) (*jobState, error) {
	var persisted []events.ProgressEvent
	if snap.EventsJSON != "" {
		if err := json.Unmarshal([]byte(snap.EventsJSON), &persisted); err != nil {
			return nil, fmt.Errorf("snapshot %s: decode events: %w", snap.ID, err)
		}
	}
	state := &jobState{
		id:         snap.ID,
		sourcePath: snap.SourcePath,
		status:     snap.Status,
		createdAt:  snap.CreatedAt,
		updatedAt:  snap.UpdatedAt,
		log:        events.Restore(persisted),
	}
	if snap.ResultJSON != "" {
		var result Result
		if err := json.Unmarshal([]byte(snap.ResultJSON), &result); err != nil {
			return nil, fmt.Errorf("snapshot %s: decode result: %w", snap.ID, err)
		}
		state.result = &result
	}
	return state, nil
}

// Create inserts a new running job and claims the active slot. It fails
// with ConflictError carrying the active job's id when another job is
// already running. The cancel func is the job's cooperative cancellation
// handle; it is never persisted.
func (r *Registry) Create(ctx context.Context, id, sourcePath string, cancel context.CancelFunc) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[id]; ok {
		return Job{}, fmt.Errorf("job %s already exists with status %s", existing.id, existing.status)
	}
	if holder, ok := r.active.Acquire(id); !ok {
		return Job{}, &ConflictError{ActiveJobID: holder}
	}

	now := time.Now().UTC()
	state := &jobState{
		id:         id,
		sourcePath: sourcePath,
		status:     StatusRunning,
		createdAt:  now,
		updatedAt:  now,
		log:        events.NewLog(),
		cancel:     cancel,
	}
	r.jobs[id] = state
	r.persist(ctx, state)
	r.logger.Info("job created",
		logging.String(logging.FieldJobID, id),
		logging.String("source_path", sourcePath),
		logging.String(logging.FieldEventType, "job_created"),
	)
	return state.view(), nil
}

// Get returns the job view for id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return state.view(), true
}

// List returns all jobs, newest first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, state := range r.jobs {
		out = append(out, state.view())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Active returns the currently running job's id, if any.
func (r *Registry) Active() (string, bool) {
	return r.active.Current()
}

// AddEvent appends a progress event to the job's log and snapshots the job.
// A terminal stage transitions the job status, stores the result carried in
// the payload, and releases the active slot. Appending to a terminated job
// returns events.ErrSealed.
func (r *Registry) AddEvent(ctx context.Context, id string, payload events.Payload) (events.ProgressEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.jobs[id]
	if !ok {
		return events.ProgressEvent{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	evt, err := state.log.Append(payload)
	if err != nil {
		return events.ProgressEvent{}, err
	}
	state.updatedAt = evt.Timestamp

	if status, terminal := statusForTerminalStage(payload.Stage); terminal {
		state.status = status
		state.cancel = nil
		if status == StatusComplete && len(payload.Result) > 0 {
			var result Result
			if err := json.Unmarshal(payload.Result, &result); err != nil {
				r.logger.Warn("terminal event carried undecodable result",
					logging.String(logging.FieldJobID, id),
					logging.Error(err),
				)
			} else {
				state.result = &result
			}
		}
		r.active.Release(id)
		r.logger.Info("job reached terminal state",
			logging.String(logging.FieldJobID, id),
			logging.String("status", string(status)),
			logging.String(logging.FieldEventType, "job_terminal"),
		)
	}

	r.persist(ctx, state)
	return evt, nil
}

// Cancel signals the job's cancellation handle and records the cancelled
// terminal event. It is idempotent: cancelling a job that is not running
// returns false and appends nothing.
func (r *Registry) Cancel(ctx context.Context, id string) bool {
	r.mu.Lock()
	state, ok := r.jobs[id]
	if !ok || state.status != StatusRunning || state.cancelSent {
		r.mu.Unlock()
		return false
	}
	state.cancelSent = true
	cancel := state.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_, err := r.AddEvent(ctx, id, events.Payload{
		Stage:    events.StageCancelled,
		Progress: 1,
		Message:  "cancelled by user",
	})
	if err != nil {
		// The pipeline observed the signal first and already sealed the
		// log; the job is cancelled either way.
		r.logger.Debug("cancel event already recorded",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
		)
	}
	return true
}

// EventsAfter returns the suffix of the job's event log following the
// given replay cursor (-1 for the full history).
func (r *Registry) EventsAfter(id string, since int64) ([]events.ProgressEvent, error) {
	log, err := r.eventLog(id)
	if err != nil {
		return nil, err
	}
	return log.After(since), nil
}

// FetchEvents returns events after the cursor, optionally blocking until
// new events arrive, the log seals, or ctx ends.
func (r *Registry) FetchEvents(ctx context.Context, id string, since int64, wait bool) ([]events.ProgressEvent, error) {
	log, err := r.eventLog(id)
	if err != nil {
		return nil, err
	}
	return log.Fetch(ctx, since, wait)
}

// Health reports snapshot store diagnostics.
func (r *Registry) Health(ctx context.Context) StoreHealth {
	return r.store.Health(ctx)
}

// Close closes the snapshot store.
func (r *Registry) Close() error {
	return r.store.Close()
}

func (r *Registry) eventLog(id string) (*events.Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return state.log, nil
}

// persist writes the job's full snapshot through to disk. Snapshotting is
// an internal durability concern: failures are logged and never surfaced
// to the job's own event stream.
func (r *Registry) persist(ctx context.Context, state *jobState) {
	snap, err := state.snapshot()
	if err != nil {
		r.logger.Error("encode job snapshot failed",
			logging.String(logging.FieldJobID, state.id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "job state survives in memory only until restart"),
		)
		return
	}
	if err := r.store.Save(ctx, snap); err != nil {
		r.logger.Error("write job snapshot failed",
			logging.String(logging.FieldJobID, state.id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check disk space and snapshot db permissions"),
		)
	}
}

func (s *jobState) view() Job {
	job := Job{
		ID:         s.id,
		SourcePath: s.sourcePath,
		Status:     s.status,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
		EventCount: s.log.Len(),
	}
	if s.result != nil {
		resultCopy := *s.result
		job.Result = &resultCopy
	}
	return job
}

func (s *jobState) snapshot() (Snapshot, error) {
	eventsJSON, err := json.Marshal(s.log.All())
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal events: %w", err)
	}
	snap := Snapshot{
		ID:         s.id,
		Status:     s.status,
		SourcePath: s.sourcePath,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
		EventsJSON: string(eventsJSON),
	}
	if s.result != nil {
		resultJSON, err := json.Marshal(s.result)
		if err != nil {
			return Snapshot{}, fmt.Errorf("marshal result: %w", err)
		}
		snap.ResultJSON = string(resultJSON)
	}
	return snap, nil
}
