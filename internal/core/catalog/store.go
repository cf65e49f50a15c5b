// Package catalog records build runs and the snippets they produce.
//
// Every conversion in a run is stored with its outcome; generated snippets
// carry their source and checksum. Comparing a new checksum against the
// latest stored one for the same extension tells a build which snippets
// changed.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/extgen/internal/types"
)

// Run states.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Queries is the subset of *db.Queries the store needs.
type Queries interface {
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Select(ctx context.Context, name string, dest interface{}, args ...interface{}) error
}

// Run is one row of build_runs.
type Run struct {
	ID             types.RunID    `db:"run_id"`
	WorkspaceID    string         `db:"workspace_id"`
	Status         string         `db:"status"`
	ExtensionCount int            `db:"extension_count"`
	GeneratedCount int            `db:"generated_count"`
	SkippedCount   int            `db:"skipped_count"`
	ChangedCount   int            `db:"changed_count"`
	Error          string         `db:"error"`
	StartedAt      string         `db:"started_at"`
	FinishedAt     sql.NullString `db:"finished_at"`
}

// Record is one converted extension within a run.
type Record struct {
	RunID       types.RunID       `db:"run_id"`
	Position    int               `db:"position"`
	ExtensionID types.ExtensionID `db:"extension_id"`
	Name        string            `db:"name"`
	Status      string            `db:"status"` // types.StatusGenerated or types.StatusSkipped
	Checksum    string            `db:"checksum"`
	Source      string            `db:"source"`
	Reason      string            `db:"reason"`
	Changed     bool              `db:"changed"`
	CreatedAt   string            `db:"created_at"`
}

// Summary is the outcome written when a run finishes.
type Summary struct {
	Generated int
	Skipped   int
	Changed   int
	Err       error
}

// Store reads and writes the catalog through named queries.
type Store struct {
	queries Queries
	now     func() time.Time
}

// NewStore creates a store over queries.
func NewStore(queries Queries) *Store {
	return &Store{
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) timestamp() string {
	return s.now().Format(time.RFC3339)
}

// BeginRun opens a run in the running state.
func (s *Store) BeginRun(ctx context.Context, runID types.RunID, workspaceID string, extensionCount int) error {
	if _, err := s.queries.Exec(ctx, "insert-run", runID, workspaceID, extensionCount, s.timestamp()); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}
	return nil
}

// FinishRun closes a run. A non-nil sum.Err marks it failed.
func (s *Store) FinishRun(ctx context.Context, runID types.RunID, sum Summary) error {
	status, msg := RunSucceeded, ""
	if sum.Err != nil {
		status, msg = RunFailed, sum.Err.Error()
	}
	res, err := s.queries.Exec(ctx, "finish-run", status, sum.Generated, sum.Skipped, sum.Changed, msg, s.timestamp(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, runID types.RunID) (*Run, error) {
	var run Run
	err := s.queries.Get(ctx, "get-run", &run, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return &run, nil
}

// RecordSnippet stores one conversion outcome. CreatedAt is filled in when empty.
func (s *Store) RecordSnippet(ctx context.Context, rec *Record) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = s.timestamp()
	}
	_, err := s.queries.Exec(ctx, "insert-snippet",
		rec.RunID, rec.Position, rec.ExtensionID, rec.Name, rec.Status,
		rec.Checksum, rec.Source, rec.Reason, rec.Changed, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record snippet for extension %d: %w", rec.ExtensionID, err)
	}
	return nil
}

// LatestSnippet returns the most recent generated snippet for an extension
// from a succeeded run of workspaceID, or types.ErrSnippetNotFound. Run IDs
// are UUIDv7 so the latest run sorts last.
func (s *Store) LatestSnippet(ctx context.Context, workspaceID string, id types.ExtensionID) (*Record, error) {
	var rec Record
	err := s.queries.Get(ctx, "get-latest-snippet", &rec, id, workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extension %d: %w", id, types.ErrSnippetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snippet for extension %d: %w", id, err)
	}
	return &rec, nil
}

// PreviousChecksum returns the checksum LatestSnippet would return; ok is
// false when none exists.
func (s *Store) PreviousChecksum(ctx context.Context, workspaceID string, id types.ExtensionID) (checksum string, ok bool, err error) {
	rec, err := s.LatestSnippet(ctx, workspaceID, id)
	if errors.Is(err, types.ErrSnippetNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Checksum, true, nil
}

// ListRunSnippets returns a run's records in input order.
func (s *Store) ListRunSnippets(ctx context.Context, runID types.RunID) ([]Record, error) {
	var recs []Record
	if err := s.queries.Select(ctx, "list-run-snippets", &recs, runID); err != nil {
		return nil, fmt.Errorf("failed to list snippets for run %s: %w", runID, err)
	}
	return recs, nil
}
