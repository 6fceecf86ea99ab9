// Package db records runs and listing outcomes so later runs can skip postings
// already applied to. PostgreSQL (pgx) and SQLite (modernc) back the same Store.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/apply-agent/internal/types"
)

// Run statuses
const (
	RunStatusRunning     = "running"
	RunStatusCompleted   = "completed"
	RunStatusInterrupted = "interrupted"
	RunStatusFailed      = "failed"
)

// Store is the applied-history and outcome store
type Store interface {
	// CreateRun records the start of a run.
	CreateRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	// CompleteRun sets the final status of a run.
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
	// SaveOutcome records one listing outcome for a run.
	SaveOutcome(ctx context.Context, runID uuid.UUID, out types.ApplicationOutcome) error
	// HasApplied reports whether any run submitted an application for the listing.
	HasApplied(ctx context.Context, externalID string) (bool, error)
	// ListOutcomes returns a run's outcomes in the order they were saved.
	ListOutcomes(ctx context.Context, runID uuid.UUID) ([]types.ApplicationOutcome, error)
	// GetRun returns a run, or nil when it does not exist.
	GetRun(ctx context.Context, runID uuid.UUID) (*Run, error)
	Close() error
}

// Run is a run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Open connects to PostgreSQL when databaseURL is set and to the SQLite file
// at sqlitePath otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		db, err := Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
	if sqlitePath == "" {
		return nil, fmt.Errorf("no database configured")
	}
	return NewSQLite(sqlitePath)
}
