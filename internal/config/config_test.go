package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"turnstile/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.DedupCooldown() != 5*time.Second {
		t.Fatalf("unexpected default cooldown %s", cfg.DedupCooldown())
	}
	if cfg.Pipeline.QueueCapacity != 256 {
		t.Fatalf("unexpected default queue capacity %d", cfg.Pipeline.QueueCapacity)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing file to report exists=false")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Sheets.Worksheet != "Signin" {
		t.Fatalf("unexpected worksheet default %q", cfg.Sheets.Worksheet)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[event]
name = "  Demo Day  "

[pipeline]
dedup_cooldown_seconds = 3
queue_capacity = 16

[sheets]
spreadsheet_id = "sheet-123"
worksheet = ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Event.Name != "Demo Day" {
		t.Fatalf("expected trimmed event name, got %q", cfg.Event.Name)
	}
	if cfg.DedupCooldown() != 3*time.Second {
		t.Fatalf("unexpected cooldown %s", cfg.DedupCooldown())
	}
	if cfg.Pipeline.QueueCapacity != 16 {
		t.Fatalf("unexpected capacity %d", cfg.Pipeline.QueueCapacity)
	}
	if cfg.Sheets.Worksheet != "Signin" {
		t.Fatalf("empty worksheet should fall back to default, got %q", cfg.Sheets.Worksheet)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected normalized absolute data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"cooldown", func(c *config.Config) { c.Pipeline.DedupCooldownSeconds = 0 }, "dedup_cooldown"},
		{"capacity", func(c *config.Config) { c.Pipeline.QueueCapacity = -1 }, "queue_capacity"},
		{"attempts", func(c *config.Config) { c.Sheets.MaxAttempts = 0 }, "max_attempts"},
		{"backoff cap", func(c *config.Config) { c.Sheets.RetryBackoffCapMillis = 1 }, "retry_backoff_cap_ms"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateSheets(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateSheets(); err == nil {
		t.Fatal("expected error when spreadsheet_id missing")
	}
	cfg.Sheets.SpreadsheetID = "sheet-123"
	if err := cfg.ValidateSheets(); err == nil {
		t.Fatal("expected error when credentials_path missing")
	}
	cfg.Sheets.CredentialsPath = "/tmp/creds.json"
	if err := cfg.ValidateSheets(); err != nil {
		t.Fatalf("expected valid sheet settings, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[pipeline]") {
		t.Fatal("sample config missing pipeline section")
	}
}
