package config

const (
	defaultDataDir             = "~/.local/share/soundscape"
	defaultMediaDir            = "~/.local/share/soundscape/media"
	defaultOutputDir           = "~/.local/share/soundscape/tracks"
	defaultLogDir              = "~/.local/share/soundscape/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultAnalysisBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultAnalysisModel       = "gpt-4o-mini"
	defaultAnalysisTimeout     = 120
	defaultAnalysisRetries     = 5
	defaultAudioGenBaseURL     = "https://api.elevenlabs.io/v1/sound-generation"
	defaultAudioGenTimeout     = 180
	defaultAudioGenAttempts    = 2
	defaultMediaPrepTimeout    = 300
	defaultNotifyTimeout       = 10
	defaultTargetLUFS          = -18.0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			MediaDir:  defaultMediaDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Analysis: Analysis{
			BaseURL:          defaultAnalysisBaseURL,
			Model:            defaultAnalysisModel,
			TimeoutSeconds:   defaultAnalysisTimeout,
			SpotActions:      true,
			RetryMaxAttempts: defaultAnalysisRetries,
		},
		AudioGen: AudioGen{
			BaseURL:        defaultAudioGenBaseURL,
			TimeoutSeconds: defaultAudioGenTimeout,
			MaxAttempts:    defaultAudioGenAttempts,
		},
		MediaPrep: MediaPrep{
			TimeoutSeconds: defaultMediaPrepTimeout,
		},
		Pipeline: Pipeline{
			NormalizeLoudness: false,
			TargetLUFS:        defaultTargetLUFS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
