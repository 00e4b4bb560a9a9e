package pipeline

// Stage names in execution order. These values appear verbatim in progress
// events and must stay stable for observers.
const (
	StageUpload         = "upload"
	StageStoryAnalysis  = "story_analysis"
	StageSoundDesign    = "sound_design_planning"
	StageActionSpotting = "action_spotting"
	StageGenerating     = "generating"
)

// stageSpan is the half-open progress interval a stage reports within.
// Overall progress is monotonic because stages run in order and each stage
// only emits values inside its own span.
type stageSpan struct {
	start float64
	end   float64
}

var stageSpans = map[string]stageSpan{
	StageUpload:         {0.00, 0.15},
	StageStoryAnalysis:  {0.15, 0.28},
	StageSoundDesign:    {0.28, 0.40},
	StageActionSpotting: {0.40, 0.50},
	StageGenerating:     {0.50, 0.97},
}

// stageStart returns the progress value reported when a stage begins.
func stageStart(stage string) float64 {
	return stageSpans[stage].start
}

// generationProgress maps a completed/planned ratio into the generating span.
func generationProgress(completed, planned int) float64 {
	span := stageSpans[StageGenerating]
	if planned <= 0 {
		return span.start
	}
	return span.start + (span.end-span.start)*float64(completed)/float64(planned)
}
