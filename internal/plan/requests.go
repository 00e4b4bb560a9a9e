package plan

import (
	"fmt"
	"strings"
)

// defaultSFXDuration is used when action spotting reports no duration.
const defaultSFXDuration = 4.0

// Request is the unit of work for the generation fan-out: one planned
// generation call with everything the runner needs to place, generate, and
// mix the resulting track.
type Request struct {
	ID              string    `json:"id"`
	Type            TrackType `json:"type"`
	Label           string    `json:"label"`
	Prompt          string    `json:"prompt"`
	FallbackPrompt  string    `json:"fallback_prompt,omitempty"`
	StartSec        float64   `json:"start_seconds"`
	DurationSeconds float64   `json:"duration_seconds"`
	Loudness        Loudness  `json:"loudness,omitempty"`
	Loop            bool      `json:"loop"`
	Skip            bool      `json:"skip"`
}

// BuildRequests derives the full fan-out work list from a sound design plan
// and the spotted actions: one request per music segment (skip-flagged
// segments included, so their placeholder tracks keep a timeline slot), one
// per ambient segment, and one per spotted action.
func BuildRequests(design SoundDesignPlan, actions []SpottedAction) []Request {
	requests := make([]Request, 0, len(design.Music)+len(design.Ambient)+len(actions))

	for i, seg := range design.Music {
		requests = append(requests, Request{
			ID:              fmt.Sprintf("music-%02d", i),
			Type:            TrackMusic,
			Label:           fmt.Sprintf("Music cue %d", i+1),
			Prompt:          strings.TrimSpace(seg.Prompt),
			FallbackPrompt:  strings.TrimSpace(seg.FallbackPrompt),
			StartSec:        seg.StartSec,
			DurationSeconds: seg.DurationSeconds,
			Loop:            seg.Loop,
			Skip:            seg.Skip,
		})
	}
	for i, seg := range design.Ambient {
		requests = append(requests, Request{
			ID:              fmt.Sprintf("ambient-%02d", i),
			Type:            TrackAmbient,
			Label:           fmt.Sprintf("Ambient bed %d", i+1),
			Prompt:          strings.TrimSpace(seg.Prompt),
			FallbackPrompt:  strings.TrimSpace(seg.FallbackPrompt),
			StartSec:        seg.StartSec,
			DurationSeconds: seg.DurationSeconds,
			Loudness:        seg.Loudness,
			Loop:            seg.Loop,
		})
	}
	for i, action := range actions {
		duration := action.DurationSeconds
		if duration <= 0 {
			duration = defaultSFXDuration
		}
		label := strings.TrimSpace(action.Label)
		if label == "" {
			label = fmt.Sprintf("Action %d", i+1)
		}
		requests = append(requests, Request{
			ID:              fmt.Sprintf("sfx-%02d", i),
			Type:            TrackSFX,
			Label:           label,
			Prompt:          strings.TrimSpace(action.Prompt),
			FallbackPrompt:  strings.TrimSpace(action.FallbackPrompt),
			StartSec:        action.TimeSeconds,
			DurationSeconds: duration,
		})
	}
	return requests
}
