package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// AuditEntry is one migration run in the audit ledger
type AuditEntry struct {
	RunID        string
	SourceURL    string
	Status       string
	Step         string
	ArtifactPath string
	Errors       []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// AuditStore records migration runs in SQLite
type AuditStore struct {
	db   *sql.DB
	path string
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS migration_runs (
	run_id        TEXT PRIMARY KEY,
	source_url    TEXT NOT NULL,
	status        TEXT NOT NULL,
	step          TEXT NOT NULL DEFAULT '',
	artifact_path TEXT NOT NULL DEFAULT '',
	errors        TEXT NOT NULL DEFAULT '',
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_migration_runs_source ON migration_runs(source_url);
`

// OpenAuditStore opens or creates the ledger at path
func OpenAuditStore(path string) (*AuditStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(auditSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &AuditStore{db: db, path: path}, nil
}

// Close releases the database
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// Record inserts a run
func (s *AuditStore) Record(ctx context.Context, entry AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO migration_runs (run_id, source_url, status, step, artifact_path, errors, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.SourceURL,
		entry.Status,
		entry.Step,
		entry.ArtifactPath,
		strings.Join(entry.Errors, "\n"),
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		entry.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the runs recorded for sourceURL, oldest first
func (s *AuditStore) History(ctx context.Context, sourceURL string) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, source_url, status, step, artifact_path, errors, started_at, finished_at
		 FROM migration_runs WHERE source_url = ? ORDER BY started_at, run_id`, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			entry             AuditEntry
			errorsText        string
			started, finished string
		)
		if err := rows.Scan(&entry.RunID, &entry.SourceURL, &entry.Status, &entry.Step, &entry.ArtifactPath, &errorsText, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if errorsText != "" {
			entry.Errors = strings.Split(errorsText, "\n")
		}
		entry.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		entry.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
