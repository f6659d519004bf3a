// Package ledger keeps a local SQLite history of reconciliation runs,
// so past passes stay inspectable after their logs are gone.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Run outcomes.
const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// Run is one recorded reconciliation pass with its end-of-run counters.
type Run struct {
	ID              string    `db:"id"`
	StartedAt       time.Time `db:"started_at"`
	FinishedAt      time.Time `db:"finished_at"`
	Outcome         string    `db:"outcome"`
	Detail          string    `db:"detail"`
	EmailsProcessed int       `db:"emails_processed"`
	RepliesFound    int       `db:"replies_found"`
	RowsMatched     int       `db:"rows_matched"`
	RowUpdates      int       `db:"row_updates"`
	ExtractionCalls int       `db:"extraction_calls"`
	Errors          int       `db:"errors"`
}

// Event is one timestamped entry in a run's processing history.
type Event struct {
	ID     int64     `db:"id"`
	RunID  string    `db:"run_id"`
	At     time.Time `db:"at"`
	Kind   string    `db:"kind"`
	Detail string    `db:"detail"`
}

// Ledger wraps the SQLite database holding run history.
type Ledger struct {
	db *sqlx.DB
}

// Open opens (or creates) the ledger database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func Open(dbPath string) (*Ledger, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return l, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (l *Ledger) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := l.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = l.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := l.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordRun inserts a run and its events in one transaction and returns
// the run ID. A run without an ID is assigned a new UUID.
func (l *Ledger) RecordRun(ctx context.Context, run Run, events []Event) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at, outcome, detail,
			emails_processed, replies_found, rows_matched,
			row_updates, extraction_calls, errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Outcome, run.Detail,
		run.EmailsProcessed, run.RepliesFound, run.RowsMatched,
		run.RowUpdates, run.ExtractionCalls, run.Errors,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	if len(events) > 0 {
		stmt, err := tx.PreparexContext(ctx,
			"INSERT INTO run_events (run_id, at, kind, detail) VALUES (?, ?, ?, ?)")
		if err != nil {
			return "", fmt.Errorf("preparing event insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range events {
			if _, err := stmt.ExecContext(ctx, run.ID, e.At.UTC(), e.Kind, e.Detail); err != nil {
				return "", fmt.Errorf("inserting event for run %s: %w", run.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// Runs returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT * FROM runs ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var runs []Run
	if err := l.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	return runs, nil
}

// Events returns a run's history in chronological order.
func (l *Ledger) Events(ctx context.Context, runID string) ([]Event, error) {
	var events []Event
	err := l.db.SelectContext(ctx, &events,
		"SELECT * FROM run_events WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("querying events for run %s: %w", runID, err)
	}
	return events, nil
}
