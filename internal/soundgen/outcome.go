package soundgen

import "soundscape/internal/plan"

// OutcomeStatus classifies how a single generation request ended.
type OutcomeStatus string

const (
	// OutcomeSuccess means the original prompt succeeded on some attempt.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFallback means only the substitute prompt succeeded.
	OutcomeFallback OutcomeStatus = "fallback"
	// OutcomeFailed means every attempt, fallback included, was exhausted.
	OutcomeFailed OutcomeStatus = "failed"
)

// Track is the materialized artifact of one generation request. Requested
// duration is authoritative for timeline placement; actual duration is
// advisory because the generation capability does not guarantee exact length.
type Track struct {
	ID                string         `json:"id"`
	Type              plan.TrackType `json:"type"`
	FilePath          string         `json:"file_path"`
	StartSec          float64        `json:"start_seconds"`
	RequestedDuration float64        `json:"requested_duration_seconds"`
	ActualDuration    float64        `json:"actual_duration_seconds"`
	Loop              bool           `json:"loop"`
	Volume            float64        `json:"volume"`
	Label             string         `json:"label"`
	Prompt            string         `json:"prompt"`
}

// Outcome records how one planned request resolved. Exactly one Outcome
// exists per request; outcomes are append-only and never retracted.
type Outcome struct {
	RequestID  string        `json:"request_id"`
	Type       plan.TrackType `json:"type"`
	Status     OutcomeStatus `json:"status"`
	Track      *Track        `json:"track,omitempty"`
	Retries    int           `json:"retries"`
	UsedPrompt string        `json:"used_prompt,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// TypeStats aggregates outcomes for one track type.
// Succeeded + Fallback + Failed == Planned always holds.
type TypeStats struct {
	Planned   int `json:"planned"`
	Succeeded int `json:"succeeded"`
	Fallback  int `json:"fallback"`
	Failed    int `json:"failed"`
}

// Report groups generation outcomes by track type with derived counts.
type Report struct {
	Outcomes []Outcome                    `json:"outcomes"`
	Stats    map[plan.TrackType]TypeStats `json:"stats"`
}

// Totals sums the per-type stats.
func (r Report) Totals() TypeStats {
	var total TypeStats
	for _, stats := range r.Stats {
		total.Planned += stats.Planned
		total.Succeeded += stats.Succeeded
		total.Fallback += stats.Fallback
		total.Failed += stats.Failed
	}
	return total
}

// Degraded reports whether any request fell back or failed outright.
func (r Report) Degraded() bool {
	total := r.Totals()
	return total.Fallback > 0 || total.Failed > 0
}

func buildReport(outcomes []Outcome) Report {
	report := Report{
		Outcomes: outcomes,
		Stats:    make(map[plan.TrackType]TypeStats),
	}
	for _, outcome := range outcomes {
		stats := report.Stats[outcome.Type]
		stats.Planned++
		switch outcome.Status {
		case OutcomeSuccess:
			stats.Succeeded++
		case OutcomeFallback:
			stats.Fallback++
		case OutcomeFailed:
			stats.Failed++
		}
		report.Stats[outcome.Type] = stats
	}
	return report
}
