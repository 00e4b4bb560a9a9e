package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeTrail records a stage's raw collaborator result as a numbered JSON
// file in the job's log directory. The trail is a debugging artifact; write
// failures are reported to the caller for logging but never fail the job.
func writeTrail(dir string, seq int, stage string, value any) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create trail dir: %w", err)
	}
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trail payload: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%02d_%s.json", seq, stage))
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write trail file: %w", err)
	}
	return nil
}
