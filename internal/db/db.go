package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/apply-agent/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS apply_runs (
	id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS listing_outcomes (
	id BIGSERIAL PRIMARY KEY,
	run_id UUID NOT NULL REFERENCES apply_runs(id) ON DELETE CASCADE,
	external_id TEXT NOT NULL,
	source_url TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	result TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	error_kind TEXT NOT NULL DEFAULT '',
	abandoned_at_step INTEGER NOT NULL DEFAULT 0,
	step_history JSONB NOT NULL DEFAULT '[]',
	title TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listing_outcomes_external ON listing_outcomes(external_id, result);
CREATE INDEX IF NOT EXISTS idx_listing_outcomes_run ON listing_outcomes(run_id, id);
`

// DB is the PostgreSQL Store
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// EnsureSchema creates the tables when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// CreateRun records a new run in the running state
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO apply_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		runID, RunStatusRunning, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished with status
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE apply_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, status, started_at, completed_at FROM apply_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Status, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// SaveOutcome stores one listing outcome
func (db *DB) SaveOutcome(ctx context.Context, runID uuid.UUID, out types.ApplicationOutcome) error {
	history, err := encodeHistory(out.StepHistory)
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO listing_outcomes
		   (run_id, external_id, source_url, ordinal, result, reason, error_kind,
		    abandoned_at_step, step_history, title, company, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		runID, out.Listing.ExternalID, out.Listing.SourceURL, out.Listing.DiscoveredAtOrdinal,
		string(out.Result), out.Reason, string(out.ErrorKind), out.AbandonedAtStep,
		history, out.Title, out.Company, out.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome for %s: %w", out.Listing.ExternalID, err)
	}
	return nil
}

// HasApplied reports whether a submitted outcome exists for the listing
func (db *DB) HasApplied(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM listing_outcomes WHERE external_id = $1 AND result = $2)`,
		externalID, string(types.ResultSubmitted),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check history for %s: %w", externalID, err)
	}
	return exists, nil
}

// ListOutcomes returns the outcomes of a run in insertion order
func (db *DB) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]types.ApplicationOutcome, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT external_id, source_url, ordinal, result, reason, error_kind,
		        abandoned_at_step, step_history, title, company, completed_at
		 FROM listing_outcomes WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.ApplicationOutcome
	for rows.Next() {
		var (
			o       types.ApplicationOutcome
			result  string
			kind    string
			history []byte
		)
		if err := rows.Scan(&o.Listing.ExternalID, &o.Listing.SourceURL, &o.Listing.DiscoveredAtOrdinal,
			&result, &o.Reason, &kind, &o.AbandonedAtStep, &history, &o.Title, &o.Company, &o.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Result = types.Result(result)
		o.ErrorKind = types.ErrorKind(kind)
		if o.StepHistory, err = decodeHistory(history); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return outcomes, nil
}
