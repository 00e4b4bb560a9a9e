package mix_test

import (
	"testing"

	"soundscape/internal/mix"
	"soundscape/internal/plan"
)

func scenes() []plan.Scene {
	return []plan.Scene{
		{Index: 0, StartSec: 0, EndSec: 30, MusicLevel: plan.MusicHigh},
		{Index: 1, StartSec: 30, EndSec: 60, Dialogue: true, MusicLevel: plan.MusicHigh},
		{Index: 2, StartSec: 60, EndSec: 90, MusicLevel: plan.MusicOff},
	}
}

func TestMusicGainPerProminenceLevel(t *testing.T) {
	tests := []struct {
		level plan.MusicLevel
		want  float64
	}{
		{plan.MusicOff, 0.0},
		{plan.MusicLow, 0.25},
		{plan.MusicMedium, 0.55},
		{plan.MusicHigh, 0.85},
	}
	for _, tt := range tests {
		got := mix.MusicGain(plan.Scene{MusicLevel: tt.level})
		if got != tt.want {
			t.Errorf("MusicGain(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestGainForMusicScenarios(t *testing.T) {
	req := plan.Request{ID: "music-00", Type: plan.TrackMusic, StartSec: 5}
	if got := mix.GainFor(req, scenes()); got != 0.85 {
		t.Fatalf("music in high-prominence scene: got %v, want 0.85", got)
	}

	req.StartSec = 65
	if got := mix.GainFor(req, scenes()); got != 0.0 {
		t.Fatalf("music in off scene: got %v, want 0.0", got)
	}
}

func TestGainForSFXDialogueAndHighMusic(t *testing.T) {
	req := plan.Request{ID: "sfx-00", Type: plan.TrackSFX, StartSec: 45}
	if got := mix.GainFor(req, scenes()); got != 0.30 {
		t.Fatalf("sfx under dialogue+high music: got %v, want 0.30", got)
	}
}

func TestSFXGainOrderedRules(t *testing.T) {
	tests := []struct {
		name  string
		scene plan.Scene
		want  float64
	}{
		{"dialogue with high music", plan.Scene{Dialogue: true, MusicLevel: plan.MusicHigh}, 0.30},
		{"dialogue alone", plan.Scene{Dialogue: true, MusicLevel: plan.MusicMedium}, 0.45},
		{"high music alone", plan.Scene{MusicLevel: plan.MusicHigh}, 0.55},
		{"music off", plan.Scene{MusicLevel: plan.MusicOff}, 0.80},
		{"music low", plan.Scene{MusicLevel: plan.MusicLow}, 0.80},
		{"default", plan.Scene{MusicLevel: plan.MusicMedium}, 0.65},
	}
	for _, tt := range tests {
		if got := mix.SFXGain(tt.scene); got != tt.want {
			t.Errorf("%s: SFXGain = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAmbientGainTable(t *testing.T) {
	tests := []struct {
		name  string
		class plan.Loudness
		scene plan.Scene
		want  float64
	}{
		{"quiet base", plan.LoudnessQuiet, plan.Scene{}, 0.30},
		{"quiet dialogue", plan.LoudnessQuiet, plan.Scene{Dialogue: true}, 0.20},
		{"quiet high music", plan.LoudnessQuiet, plan.Scene{MusicLevel: plan.MusicHigh}, 0.15},
		{"moderate base", plan.LoudnessModerate, plan.Scene{}, 0.50},
		{"moderate dialogue", plan.LoudnessModerate, plan.Scene{Dialogue: true}, 0.35},
		{"moderate high music", plan.LoudnessModerate, plan.Scene{MusicLevel: plan.MusicHigh}, 0.25},
		{"loud base", plan.LoudnessLoud, plan.Scene{}, 0.70},
		{"loud dialogue", plan.LoudnessLoud, plan.Scene{Dialogue: true}, 0.50},
		{"loud high music", plan.LoudnessLoud, plan.Scene{MusicLevel: plan.MusicHigh}, 0.40},
	}
	for _, tt := range tests {
		if got := mix.AmbientGain(tt.class, tt.scene); got != tt.want {
			t.Errorf("%s: AmbientGain = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAmbientDialoguePrecedesHighMusic(t *testing.T) {
	scene := plan.Scene{Dialogue: true, MusicLevel: plan.MusicHigh}
	if got := mix.AmbientGain(plan.LoudnessLoud, scene); got != 0.50 {
		t.Fatalf("dialogue column should win over high music: got %v, want 0.50", got)
	}
}

func TestSceneAtFallsBackToDefaultScene(t *testing.T) {
	scene := mix.SceneAt(scenes(), 500)
	if scene.Index != -1 {
		t.Fatalf("expected default scene, got index %d", scene.Index)
	}
	if scene.Dialogue || scene.MusicLevel != plan.MusicMedium {
		t.Fatalf("default scene attributes wrong: %+v", scene)
	}
}

func TestGainForSkipRequestIsAlwaysZero(t *testing.T) {
	req := plan.Request{ID: "music-01", Type: plan.TrackMusic, StartSec: 5, Skip: true}
	if got := mix.GainFor(req, scenes()); got != 0 {
		t.Fatalf("skip request gain: got %v, want 0", got)
	}
}
