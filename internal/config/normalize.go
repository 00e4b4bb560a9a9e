package config

import "strings"

// Normalize expands path fields and fills empty values with defaults.
func (c *Config) Normalize() error {
	defaults := Default()

	normalizeDir := func(value *string, fallback string) error {
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			trimmed = fallback
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*value = expanded
		return nil
	}

	if err := normalizeDir(&c.Paths.DataDir, defaults.Paths.DataDir); err != nil {
		return err
	}
	if err := normalizeDir(&c.Paths.MediaDir, defaults.Paths.MediaDir); err != nil {
		return err
	}
	if err := normalizeDir(&c.Paths.OutputDir, defaults.Paths.OutputDir); err != nil {
		return err
	}
	if err := normalizeDir(&c.Paths.LogDir, defaults.Paths.LogDir); err != nil {
		return err
	}

	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaults.Analysis.TimeoutSeconds
	}
	if c.Analysis.RetryMaxAttempts <= 0 {
		c.Analysis.RetryMaxAttempts = defaults.Analysis.RetryMaxAttempts
	}
	if strings.TrimSpace(c.Analysis.BaseURL) == "" {
		c.Analysis.BaseURL = defaults.Analysis.BaseURL
	}
	if strings.TrimSpace(c.Analysis.Model) == "" {
		c.Analysis.Model = defaults.Analysis.Model
	}

	if c.AudioGen.TimeoutSeconds <= 0 {
		c.AudioGen.TimeoutSeconds = defaults.AudioGen.TimeoutSeconds
	}
	if c.AudioGen.MaxAttempts <= 0 {
		c.AudioGen.MaxAttempts = defaults.AudioGen.MaxAttempts
	}
	if strings.TrimSpace(c.AudioGen.BaseURL) == "" {
		c.AudioGen.BaseURL = defaults.AudioGen.BaseURL
	}

	if c.MediaPrep.TimeoutSeconds <= 0 {
		c.MediaPrep.TimeoutSeconds = defaults.MediaPrep.TimeoutSeconds
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaults.Notifications.RequestTimeout
	}

	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	return nil
}
