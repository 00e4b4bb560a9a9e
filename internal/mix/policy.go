package mix

import "soundscape/internal/plan"

// Music gain per scene music prominence level.
var musicGains = map[plan.MusicLevel]float64{
	plan.MusicOff:    0.0,
	plan.MusicLow:    0.25,
	plan.MusicMedium: 0.55,
	plan.MusicHigh:   0.85,
}

// Ambient gain per loudness class across scene conditions. Dialogue and
// prominent music each pull the bed down from its base level so generated
// layers never crowd the foreground.
var ambientGains = map[plan.Loudness]struct {
	base      float64
	dialogue  float64
	highMusic float64
}{
	plan.LoudnessQuiet:    {base: 0.30, dialogue: 0.20, highMusic: 0.15},
	plan.LoudnessModerate: {base: 0.50, dialogue: 0.35, highMusic: 0.25},
	plan.LoudnessLoud:     {base: 0.70, dialogue: 0.50, highMusic: 0.40},
}

// SFX gains, rule-ordered from most to least constrained scene.
const (
	sfxGainDialogueAndHighMusic = 0.30
	sfxGainDialogue             = 0.45
	sfxGainHighMusic            = 0.55
	sfxGainQuietMusic           = 0.80
	sfxGainDefault              = 0.65
)

// DefaultScene is assumed when no scene interval contains a track's start
// offset: no dialogue, medium music prominence.
var DefaultScene = plan.Scene{Index: -1, Dialogue: false, MusicLevel: plan.MusicMedium}

// SceneAt finds the scene whose interval contains the offset via linear scan,
// falling back to DefaultScene.
func SceneAt(scenes []plan.Scene, offset float64) plan.Scene {
	for _, scene := range scenes {
		if scene.Contains(offset) {
			return scene
		}
	}
	return DefaultScene
}

// MusicGain looks up the gain for a music track from the scene's declared
// music prominence.
func MusicGain(scene plan.Scene) float64 {
	if gain, ok := musicGains[scene.MusicLevel]; ok {
		return gain
	}
	return musicGains[plan.MusicMedium]
}

// AmbientGain resolves the gain for an ambient bed from its loudness class
// and the scene. Dialogue takes precedence over prominent music when both
// apply, since speech intelligibility is the harder constraint.
func AmbientGain(class plan.Loudness, scene plan.Scene) float64 {
	row, ok := ambientGains[class]
	if !ok {
		row = ambientGains[plan.LoudnessModerate]
	}
	switch {
	case scene.Dialogue:
		return row.dialogue
	case scene.MusicLevel == plan.MusicHigh:
		return row.highMusic
	default:
		return row.base
	}
}

// SFXGain resolves the gain for a sound effect from the scene. The rules are
// ordered: the most constrained scene wins.
func SFXGain(scene plan.Scene) float64 {
	switch {
	case scene.Dialogue && scene.MusicLevel == plan.MusicHigh:
		return sfxGainDialogueAndHighMusic
	case scene.Dialogue:
		return sfxGainDialogue
	case scene.MusicLevel == plan.MusicHigh:
		return sfxGainHighMusic
	case scene.MusicLevel == plan.MusicOff || scene.MusicLevel == plan.MusicLow:
		return sfxGainQuietMusic
	default:
		return sfxGainDefault
	}
}

// GainFor assigns a playback gain to a request by locating its containing
// scene and applying the per-type rules. Skip-flagged requests always
// resolve to zero: they exist only as silent placeholders.
func GainFor(req plan.Request, scenes []plan.Scene) float64 {
	if req.Skip {
		return 0
	}
	scene := SceneAt(scenes, req.StartSec)
	switch req.Type {
	case plan.TrackMusic:
		return MusicGain(scene)
	case plan.TrackAmbient:
		return AmbientGain(req.Loudness, scene)
	case plan.TrackSFX:
		return SFXGain(scene)
	default:
		return 0
	}
}
