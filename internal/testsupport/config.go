package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"turnstile/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.QRDir = filepath.Join(base, "qr")
	cfgVal.Event.Name = "test-event"
	cfgVal.Sheets.CredentialsPath = filepath.Join(base, "credentials.json")
	cfgVal.Sheets.SpreadsheetID = "test-spreadsheet"
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEventName sets the event name on the test config.
func WithEventName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Event.Name = name
	}
}

// WithDedupCooldown overrides the duplicate suppression window.
func WithDedupCooldown(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.DedupCooldownSeconds = int(d / time.Second)
	}
}

// WithQueueCapacity overrides the in-memory write queue capacity.
func WithQueueCapacity(capacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.QueueCapacity = capacity
	}
}

// WithMaxAttempts overrides the per-record delivery attempt limit.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sheets.MaxAttempts = attempts
	}
}
