package testsupport

import (
	"context"
	"testing"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/record"
	"turnstile/internal/spool"
)

// MustOpenSpool opens a spool.Store for tests and registers cleanup.
func MustOpenSpool(t testing.TB, cfg *config.Config) *spool.Store {
	t.Helper()

	store, err := spool.Open(cfg)
	if err != nil {
		t.Fatalf("spool.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecord builds a scan record for tests with sensible defaults.
func NewRecord(t testing.TB, id, name string) record.Record {
	t.Helper()

	return record.Record{
		ScanID:    "scan-" + id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Event:     "test-event",
		ID:        id,
		Name:      name,
	}
}

// MustSpool adds a record to the spool for tests.
func MustSpool(t testing.TB, store *spool.Store, rec record.Record, reason string) *spool.Entry {
	t.Helper()

	entry, err := store.Add(context.Background(), rec, reason, 1)
	if err != nil {
		t.Fatalf("spool.Add: %v", err)
	}
	return entry
}
