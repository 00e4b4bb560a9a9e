package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateAudioGen(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if strings.TrimSpace(c.Analysis.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/soundscape/config.toml"
		}
		return fmt.Errorf("analysis.api_key is required. Set SOUNDSCAPE_ANALYSIS_API_KEY env var or edit %s (create with 'soundscape config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateAudioGen() error {
	if strings.TrimSpace(c.AudioGen.APIKey) == "" {
		return errors.New("audiogen.api_key is required. Set SOUNDSCAPE_AUDIOGEN_API_KEY env var or edit the config file")
	}
	if c.AudioGen.MaxAttempts > 5 {
		return errors.New("audiogen.max_attempts must not exceed 5")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.TargetLUFS > 0 {
		return errors.New("pipeline.target_lufs must be negative (LUFS scale)")
	}
	return nil
}
