// Package logging provides slog-based structured logging helpers shared by
// the daemon, the pipeline, and the CLI. It standardizes field names and
// context carriage so every component logs job identity the same way.
package logging
