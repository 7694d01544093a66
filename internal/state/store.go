// Package state persists QA/QC run history using SQLite. Every completed
// run stores its finalized diagnostics and summary rows so reports can be
// re-rendered without rescanning the source tree.
package state

import (
	"time"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
)

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunStats are the scan totals recorded when a run completes.
type RunStats struct {
	SourcesScanned   int
	TotalRows        int64
	PriorityRows     int64
	ExcludedRows     int64
	ObservationTypes int
	Participants     int64
	Elapsed          time.Duration
}

// Run is one recorded QA/QC run.
type Run struct {
	ID          string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	Stats       RunStats
}

// Store is the persistence interface for run history and reports.
type Store interface {
	// Open opens the store at path (":memory:" for an in-memory store)
	// and applies pending migrations.
	Open(path string) error
	Close() error

	// CreateRun records the start of a run.
	CreateRun() (*Run, error)
	// CompleteRun finalizes a run's status and scan totals.
	CompleteRun(id string, status RunStatus, errMsg string, stats RunStats) error
	GetRun(id string) (*Run, error)
	// LatestRun returns the most recently started completed run, or nil
	// when none exists.
	LatestRun() (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// SaveReport stores the finalized report rows for a run.
	SaveReport(runID string, diags []qaqc.DiagnosticsRow, summary []qaqc.SummaryRow) error
	// GetReport loads the stored report rows for a run.
	GetReport(runID string) ([]qaqc.DiagnosticsRow, []qaqc.SummaryRow, error)

	// DeleteOldRuns keeps the most recent keep runs and drops the rest,
	// cascading to their report rows.
	DeleteOldRuns(keep int) error
}
