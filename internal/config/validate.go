package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Sheet credentials are only
// required when a scan session starts, so they are checked separately by
// ValidateSheets; generate-only invocations work without them.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateSheetTunables(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateSheets checks the remote store settings needed to start a session.
func (c *Config) ValidateSheets() error {
	if c.Sheets.SpreadsheetID == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/turnstile/config.toml"
		}
		return fmt.Errorf("sheets.spreadsheet_id is required; edit %s (create with 'turnstile config init')", defaultPath)
	}
	if strings.TrimSpace(c.Sheets.CredentialsPath) == "" {
		return errors.New("sheets.credentials_path must point at a service account credentials file")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.DeviceIndex < 0 {
		return errors.New("camera.device_index must not be negative")
	}
	if c.Camera.FrameWidth <= 0 || c.Camera.FrameHeight <= 0 {
		return errors.New("camera.frame_width and camera.frame_height must be positive")
	}
	if c.Camera.ReadTimeout <= 0 {
		return errors.New("camera.read_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.DedupCooldownSeconds <= 0 {
		return errors.New("pipeline.dedup_cooldown_seconds must be positive")
	}
	if c.Pipeline.QueueCapacity <= 0 {
		return errors.New("pipeline.queue_capacity must be positive")
	}
	if c.Pipeline.DrainTimeoutSeconds < 0 {
		return errors.New("pipeline.drain_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateSheetTunables() error {
	if c.Sheets.RequestTimeoutSeconds <= 0 {
		return errors.New("sheets.request_timeout_seconds must be positive")
	}
	if c.Sheets.MaxAttempts < 1 {
		return errors.New("sheets.max_attempts must be at least 1")
	}
	if c.Sheets.RetryBackoffMillis <= 0 {
		return errors.New("sheets.retry_backoff_ms must be positive")
	}
	if c.Sheets.RetryBackoffCapMillis < c.Sheets.RetryBackoffMillis {
		return errors.New("sheets.retry_backoff_cap_ms must be at least sheets.retry_backoff_ms")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
