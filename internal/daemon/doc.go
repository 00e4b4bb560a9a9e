// Package daemon owns the long-running soundscape process: the job registry,
// the pipeline orchestrator, and single-instance enforcement via a lock file.
// The IPC server exposes the daemon's methods; the daemon itself never talks
// to the wire.
package daemon
