package jobs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job id is unknown to the registry.
var ErrNotFound = errors.New("job not found")

// ConflictError rejects a submission while another job is running. It
// carries the active job's id so callers can poll or wait for it.
type ConflictError struct {
	ActiveJobID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("another job is already running: %s", e.ActiveJobID)
}
