// Package jobs owns all job state: the in-memory registry, the single
// active-job admission slot, and write-through disk snapshots. Every
// mutation flows through registry operations; concurrent pipeline tasks
// never touch job state directly.
package jobs
