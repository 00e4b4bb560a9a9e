package plan

import "strings"

// TrackType tags a generation request and its resulting track.
type TrackType string

const (
	TrackMusic   TrackType = "music"
	TrackAmbient TrackType = "ambient"
	TrackSFX     TrackType = "sfx"
)

// ParseTrackType converts a string into a known TrackType.
func ParseTrackType(value string) (TrackType, bool) {
	switch TrackType(strings.ToLower(strings.TrimSpace(value))) {
	case TrackMusic:
		return TrackMusic, true
	case TrackAmbient:
		return TrackAmbient, true
	case TrackSFX:
		return TrackSFX, true
	default:
		return "", false
	}
}

// MusicLevel is a scene's declared music prominence.
type MusicLevel string

const (
	MusicOff    MusicLevel = "off"
	MusicLow    MusicLevel = "low"
	MusicMedium MusicLevel = "medium"
	MusicHigh   MusicLevel = "high"
)

// Loudness is an ambient segment's declared loudness class.
type Loudness string

const (
	LoudnessQuiet    Loudness = "quiet"
	LoudnessModerate Loudness = "moderate"
	LoudnessLoud     Loudness = "loud"
)

// Beat is one narrative moment in the story analysis.
type Beat struct {
	TimeSeconds float64 `json:"time_seconds"`
	Description string  `json:"description"`
}

// StoryAnalysis is the typed result of the story understanding collaborator.
type StoryAnalysis struct {
	Summary         string  `json:"summary"`
	DurationSeconds float64 `json:"duration_seconds"`
	Beats           []Beat  `json:"beats"`
}

// Scene is a time interval with the attributes the mix policy reads. Scenes
// are read-only context; the pipeline never mutates them.
type Scene struct {
	Index      int        `json:"index"`
	StartSec   float64    `json:"start_seconds"`
	EndSec     float64    `json:"end_seconds"`
	Mood       string     `json:"mood"`
	Dialogue   bool       `json:"dialogue"`
	MusicLevel MusicLevel `json:"music_level"`
}

// Contains reports whether offset falls inside the scene interval.
// The start bound is inclusive, the end bound exclusive.
func (s Scene) Contains(offset float64) bool {
	return offset >= s.StartSec && offset < s.EndSec
}

// MusicSegment is one planned music cue.
type MusicSegment struct {
	StartSec        float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	Prompt          string  `json:"prompt"`
	FallbackPrompt  string  `json:"fallback_prompt,omitempty"`
	Loop            bool    `json:"loop"`
	// Skip marks an intentionally silent segment: no audio is generated,
	// but a zero-gain placeholder track still appears on the timeline.
	Skip bool `json:"skip"`
}

// AmbientSegment is one planned ambient bed.
type AmbientSegment struct {
	StartSec        float64  `json:"start_seconds"`
	DurationSeconds float64  `json:"duration_seconds"`
	Prompt          string   `json:"prompt"`
	FallbackPrompt  string   `json:"fallback_prompt,omitempty"`
	Loudness        Loudness `json:"loudness"`
	Loop            bool     `json:"loop"`
}

// SpottedAction is one discrete on-screen action suitable for a sound effect.
type SpottedAction struct {
	TimeSeconds     float64 `json:"time_seconds"`
	Label           string  `json:"label"`
	Prompt          string  `json:"prompt"`
	FallbackPrompt  string  `json:"fallback_prompt,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// SoundDesignPlan is the typed result of the sound design collaborator.
type SoundDesignPlan struct {
	Scenes  []Scene          `json:"scenes"`
	Music   []MusicSegment   `json:"music"`
	Ambient []AmbientSegment `json:"ambient"`
}
