package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/apply-agent/internal/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the Store used when no PostgreSQL URL is configured
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating when needed) the database file at dbPath
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS apply_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		completed_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS listing_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES apply_runs(id) ON DELETE CASCADE,
		external_id TEXT NOT NULL,
		source_url TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		result TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		abandoned_at_step INTEGER NOT NULL DEFAULT 0,
		step_history TEXT NOT NULL DEFAULT '[]',
		title TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		completed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_listing_outcomes_external ON listing_outcomes(external_id, result);
	CREATE INDEX IF NOT EXISTS idx_listing_outcomes_run ON listing_outcomes(run_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun records a new run in the running state
func (s *SQLiteStore) CreateRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO apply_runs (id, status, started_at) VALUES (?, ?, ?)`,
		runID.String(), RunStatusRunning, startedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished with status
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE apply_runs SET status = ?, completed_at = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), runID.String())
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var (
		run       Run
		id        string
		started   int64
		completed sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, started_at, completed_at FROM apply_runs WHERE id = ?`,
		runID.String()).Scan(&id, &run.Status, &started, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	run.StartedAt = time.UnixMilli(started)
	if completed.Valid {
		t := time.UnixMilli(completed.Int64)
		run.CompletedAt = &t
	}
	return &run, nil
}

// SaveOutcome stores one listing outcome
func (s *SQLiteStore) SaveOutcome(ctx context.Context, runID uuid.UUID, out types.ApplicationOutcome) error {
	history, err := encodeHistory(out.StepHistory)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO listing_outcomes
		(run_id, external_id, source_url, ordinal, result, reason, error_kind,
		 abandoned_at_step, step_history, title, company, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID.String(), out.Listing.ExternalID, out.Listing.SourceURL, out.Listing.DiscoveredAtOrdinal,
		string(out.Result), out.Reason, string(out.ErrorKind), out.AbandonedAtStep,
		string(history), out.Title, out.Company, out.CompletedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert outcome for %s: %w", out.Listing.ExternalID, err)
	}
	return nil
}

// HasApplied reports whether a submitted outcome exists for the listing
func (s *SQLiteStore) HasApplied(ctx context.Context, externalID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM listing_outcomes WHERE external_id = ? AND result = ?`,
		externalID, string(types.ResultSubmitted)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check history for %s: %w", externalID, err)
	}
	return n > 0, nil
}

// ListOutcomes returns the outcomes of a run in insertion order
func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]types.ApplicationOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT external_id, source_url, ordinal, result, reason, error_kind,
	       abandoned_at_step, step_history, title, company, completed_at
	FROM listing_outcomes WHERE run_id = ? ORDER BY id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.ApplicationOutcome
	for rows.Next() {
		var (
			o         types.ApplicationOutcome
			result    string
			kind      string
			history   string
			completed int64
		)
		if err := rows.Scan(&o.Listing.ExternalID, &o.Listing.SourceURL, &o.Listing.DiscoveredAtOrdinal,
			&result, &o.Reason, &kind, &o.AbandonedAtStep, &history, &o.Title, &o.Company, &completed); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		o.Result = types.Result(result)
		o.ErrorKind = types.ErrorKind(kind)
		o.CompletedAt = time.UnixMilli(completed)
		if o.StepHistory, err = decodeHistory([]byte(history)); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}
