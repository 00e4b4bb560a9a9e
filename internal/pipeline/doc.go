// Package pipeline orchestrates the fixed stage sequence that turns a source
// video into a generated soundtrack. The orchestrator owns stage ordering,
// progress accounting, cancellation checkpoints, and terminal event emission;
// the actual media, analysis, and generation work happens behind collaborator
// interfaces implemented in internal/services.
package pipeline
