package spool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"turnstile/internal/config"
	"turnstile/internal/record"
	"turnstile/internal/services"
)

// Entry is one undelivered record held on disk.
type Entry struct {
	ID        int64
	Record    record.Record
	Reason    string
	Attempts  int
	CreatedAt time.Time
}

// Store manages spool persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the spool database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "spool.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Add persists an undelivered record.
func (s *Store) Add(ctx context.Context, rec record.Record, reason string, attempts int) (*Entry, error) {
	payload, err := rec.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO spool_entries (scan_id, record_json, reason, attempts, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		rec.ScanID,
		string(payload),
		nullableString(reason),
		attempts,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert spool entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a spool entry by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM spool_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get spool entry: %w", err)
	}
	return entry, nil
}

// List returns all spooled entries in insertion order.
func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM spool_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list spool entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Remove deletes an entry after successful delivery.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spool_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete spool entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all entries from the spool.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spool_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear spool: %w", err)
	}
	return res.RowsAffected()
}

// Drain replays spooled entries oldest-first through deliver, removing each
// entry once it lands. A transient delivery error stops the drain so the
// remaining entries wait for the next attempt; a permanent error leaves the
// entry in place for operator review and moves on.
func (s *Store) Drain(ctx context.Context, deliver func(context.Context, record.Record) error) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	drained := 0
	for _, entry := range entries {
		if err := deliver(ctx, entry.Record); err != nil {
			if services.IsTransient(err) {
				return drained, err
			}
			continue
		}
		if _, err := s.Remove(ctx, entry.ID); err != nil {
			return drained, err
		}
		drained++
	}
	return drained, nil
}

// Stats summarizes the spool contents.
type Stats struct {
	Entries int
	Oldest  time.Time
}

// Stats returns the entry count and the age of the oldest entry.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		count     int
		oldestRaw sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), MIN(created_at) FROM spool_entries`)
	if err := row.Scan(&count, &oldestRaw); err != nil {
		return Stats{}, fmt.Errorf("spool stats: %w", err)
	}
	stats := Stats{Entries: count}
	if oldestRaw.Valid {
		if oldest, err := time.Parse(time.RFC3339Nano, oldestRaw.String); err == nil {
			stats.Oldest = oldest
		}
	}
	return stats, nil
}

// Health reports diagnostic information about the spool database.
type Health struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	TotalEntries     int
	IntegrityCheck   bool
	Error            string
}

// CheckHealth probes the spool database for operator diagnostics.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("spool database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat spool database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("spool database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("spool database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping spool database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'spool_entries'")
	if err := row.Scan(&tableName); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM spool_entries")
		if err := row.Scan(&health.TotalEntries); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count spool entries: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

// Count returns the number of pending entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM spool_entries`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count spool entries: %w", err)
	}
	return count, nil
}

const entryColumns = "id, scan_id, record_json, reason, attempts, created_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id         int64
		scanID     string
		recordJSON string
		reason     sql.NullString
		attempts   int
		createdRaw string
	)

	if err := scanner.Scan(&id, &scanID, &recordJSON, &reason, &attempts, &createdRaw); err != nil {
		return nil, err
	}

	rec, err := record.Unmarshal([]byte(recordJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal spooled record %d: %w", id, err)
	}
	if rec.ScanID == "" {
		rec.ScanID = scanID
	}

	entry := &Entry{
		ID:       id,
		Record:   rec,
		Reason:   reason.String,
		Attempts: attempts,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
