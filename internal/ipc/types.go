package ipc

import (
	"time"

	"soundscape/internal/events"
	"soundscape/internal/jobs"
)

// SubmitRequest registers a new job for a source video.
type SubmitRequest struct {
	SourcePath string `json:"source_path"`
}

// SubmitResponse reports the created job, or the conflicting active job when
// admission was refused.
type SubmitResponse struct {
	Job         JobView `json:"job"`
	Accepted    bool    `json:"accepted"`
	ActiveJobID string  `json:"active_job_id,omitempty"`
	Message     string  `json:"message,omitempty"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StoreHealth mirrors the snapshot store diagnostics for IPC callers.
type StoreHealth struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	SchemaVersion    string `json:"schema_version"`
	TotalJobs        int    `json:"total_jobs"`
	Error            string `json:"error,omitempty"`
}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	ActiveJobID    string         `json:"active_job_id,omitempty"`
	JobCounts      map[string]int `json:"job_counts"`
	SnapshotDBPath string         `json:"snapshot_db_path"`
	SocketPath     string         `json:"socket_path"`
	LockPath       string         `json:"lock_path"`
	Store          StoreHealth    `json:"store"`
	Jobs           []JobView      `json:"jobs"`
}

// JobView is the wire representation of one job.
type JobView struct {
	ID         string       `json:"id"`
	SourcePath string       `json:"source_path"`
	Status     string       `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	EventCount int          `json:"event_count"`
	Result     *jobs.Result `json:"result,omitempty"`
}

// DescribeRequest fetches a single job by id.
type DescribeRequest struct {
	JobID string `json:"job_id"`
}

// DescribeResponse contains a single job.
type DescribeResponse struct {
	Job JobView `json:"job"`
}

// CancelRequest requests cancellation of a running job.
type CancelRequest struct {
	JobID string `json:"job_id"`
}

// CancelResponse reports whether a cancellation signal was delivered.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// EventsRequest fetches progress events after a replay cursor. AfterIndex is
// the string form of the last index the caller observed; empty means "from
// the beginning". When WaitMillis is positive the server blocks up to that
// long for new events unless the job already terminated.
type EventsRequest struct {
	JobID      string `json:"job_id"`
	AfterIndex string `json:"after_index"`
	WaitMillis int    `json:"wait_millis"`
}

// EventsResponse returns the event suffix following the cursor.
type EventsResponse struct {
	Events []events.ProgressEvent `json:"events"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

func fromJob(job jobs.Job) JobView {
	return JobView{
		ID:         job.ID,
		SourcePath: job.SourcePath,
		Status:     string(job.Status),
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
		EventCount: job.EventCount,
		Result:     job.Result,
	}
}
