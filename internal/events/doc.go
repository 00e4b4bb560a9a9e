// Package events implements the append-only per-job progress log. Every
// event carries a monotonic index that observers use as a replay cursor:
// a reconnecting client supplies the last index it saw and receives exactly
// the suffix that follows, then continues live.
package events
