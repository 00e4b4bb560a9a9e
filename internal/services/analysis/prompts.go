package analysis

import (
	"encoding/json"
	"fmt"

	"soundscape/internal/plan"
	"soundscape/internal/services"
)

const storyAnalysisPrompt = `You analyze videos for sound design. Respond with JSON only.
Given a media reference, return:
{
  "summary": "one paragraph story summary",
  "duration_seconds": <number>,
  "beats": [{"time_seconds": <number>, "description": "..."}]
}
Order beats by time. Keep descriptions under 20 words.`

const soundDesignPrompt = `You are a sound designer planning music, ambient beds, and effects for a video. Respond with JSON only:
{
  "scenes": [{"index": <int>, "start_seconds": <number>, "end_seconds": <number>, "mood": "...", "dialogue": <bool>, "music_level": "off|low|medium|high"}],
  "music": [{"start_seconds": <number>, "duration_seconds": <number>, "prompt": "...", "fallback_prompt": "...", "loop": <bool>, "skip": <bool>}],
  "ambient": [{"start_seconds": <number>, "duration_seconds": <number>, "prompt": "...", "fallback_prompt": "...", "loudness": "quiet|moderate|loud", "loop": <bool>}]
}
Scenes must cover the full duration without overlap. Mark a music segment skip=true when silence serves the scene better than music. Every prompt needs a simpler fallback_prompt.`

const actionSpottingPrompt = `You spot discrete on-screen actions that deserve a sound effect (door slams, impacts, footsteps, glass breaking). Respond with JSON only:
{
  "actions": [{"time_seconds": <number>, "label": "...", "prompt": "...", "fallback_prompt": "...", "duration_seconds": <number>}]
}
Only include clearly audible, physical actions. Skip continuous sounds; those belong to ambient.`

func storyAnalysisUserPrompt(media services.MediaRef) string {
	return fmt.Sprintf("Analyze the video at media reference %q.", media)
}

func soundDesignUserPrompt(media services.MediaRef, analysis plan.StoryAnalysis) string {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf("Media reference: %q\nStory analysis: %s", media, encoded)
}

func actionSpottingUserPrompt(media services.MediaRef, analysis plan.StoryAnalysis) string {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		encoded = []byte("{}")
	}
	return fmt.Sprintf("Media reference: %q\nStory analysis: %s\nSpot actions for sound effects.", media, encoded)
}
