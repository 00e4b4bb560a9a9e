// Package soundgen runs the generation fan-out: every planned request is
// launched as an independent concurrent task against the external audio
// generation capability, with per-task retry and prompt fallback. Individual
// failures are always recovered locally; they never abort sibling tasks or
// the job.
package soundgen
