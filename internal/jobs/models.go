package jobs

import (
	"strings"
	"time"

	"soundscape/internal/events"
	"soundscape/internal/soundgen"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// RestartReason is the error message attached to jobs found running at
// startup. Their in-memory cancellation state cannot survive a restart, so
// they are forced to error rather than left to appear hung.
const RestartReason = "daemon restarted while job was running"

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusRunning:
		return StatusRunning, true
	case StatusComplete:
		return StatusComplete, true
	case StatusError:
		return StatusError, true
	case StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// statusForTerminalStage maps a terminal event stage onto the job status.
func statusForTerminalStage(stage string) (Status, bool) {
	switch stage {
	case events.StageComplete:
		return StatusComplete, true
	case events.StageError:
		return StatusError, true
	case events.StageCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// Result is the final artifact set of a completed job.
type Result struct {
	Tracks  []soundgen.Track `json:"tracks"`
	Report  soundgen.Report  `json:"report"`
	Summary string           `json:"summary"`
}

// Job is the read-only view of one registry entry. The registry hands out
// copies; mutating a Job value has no effect on registry state.
type Job struct {
	ID         string    `json:"id"`
	SourcePath string    `json:"source_path"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	EventCount int       `json:"event_count"`
	Result     *Result   `json:"result,omitempty"`
}
