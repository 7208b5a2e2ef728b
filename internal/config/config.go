package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	QRDir   string `toml:"qr_dir"`
}

// Event describes the active event whose attendance is being recorded.
type Event struct {
	Name string `toml:"name"`
}

// Camera contains capture device configuration.
type Camera struct {
	DeviceIndex int `toml:"device_index"`
	FrameWidth  int `toml:"frame_width"`
	FrameHeight int `toml:"frame_height"`
	ReadTimeout int `toml:"read_timeout_seconds"`
}

// Pipeline contains scan pipeline tunables. The dedup cooldown and the
// queue overflow policy were left open by the source material, so both are
// configurable here with documented defaults (cooldown 5s; drop-oldest
// with counted loss at capacity 256).
type Pipeline struct {
	DedupCooldownSeconds int  `toml:"dedup_cooldown_seconds"`
	QueueCapacity        int  `toml:"queue_capacity"`
	DrainTimeoutSeconds  int  `toml:"drain_timeout_seconds"`
	SpoolDrainOnStart    bool `toml:"spool_drain_on_start"`
}

// Sheets contains configuration for the remote spreadsheet store.
type Sheets struct {
	CredentialsPath       string `toml:"credentials_path"`
	SpreadsheetID         string `toml:"spreadsheet_id"`
	Worksheet             string `toml:"worksheet"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MaxAttempts           int    `toml:"max_attempts"`
	RetryBackoffMillis    int    `toml:"retry_backoff_ms"`
	RetryBackoffCapMillis int    `toml:"retry_backoff_cap_ms"`
}

// API contains the local status API bind address. Empty disables the API.
type API struct {
	Bind string `toml:"bind"`
}

// Logging contains log output configuration. Format "auto" selects console
// output on a terminal and JSON otherwise.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for turnstile.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Event    Event    `toml:"event"`
	Camera   Camera   `toml:"camera"`
	Pipeline Pipeline `toml:"pipeline"`
	Sheets   Sheets   `toml:"sheets"`
	API      API      `toml:"api"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/turnstile/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("turnstile.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir, &c.Paths.QRDir} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	if c.Sheets.CredentialsPath != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Sheets.CredentialsPath))
		if err != nil {
			return err
		}
		c.Sheets.CredentialsPath = expanded
	}
	c.Event.Name = strings.TrimSpace(c.Event.Name)
	c.Sheets.SpreadsheetID = strings.TrimSpace(c.Sheets.SpreadsheetID)
	c.Sheets.Worksheet = strings.TrimSpace(c.Sheets.Worksheet)
	if c.Sheets.Worksheet == "" {
		c.Sheets.Worksheet = "Signin"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

// EnsureDirectories creates required directories for kiosk operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.QRDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DedupCooldown returns the duplicate suppression window.
func (c *Config) DedupCooldown() time.Duration {
	return time.Duration(c.Pipeline.DedupCooldownSeconds) * time.Second
}

// DrainTimeout returns how long shutdown waits for queued records to flush
// before spooling the remainder.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Pipeline.DrainTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-call network timeout for sheet writes.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Sheets.RequestTimeoutSeconds) * time.Second
}

// RetryBackoff returns the base and cap of the writer's exponential backoff.
func (c *Config) RetryBackoff() (base, cap time.Duration) {
	return time.Duration(c.Sheets.RetryBackoffMillis) * time.Millisecond,
		time.Duration(c.Sheets.RetryBackoffCapMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
