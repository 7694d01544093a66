package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CreateRun records the start of a new run.
func (s *SQLiteStore) CreateRun() (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun finalizes a run.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string, stats RunStats) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ?,
		 sources_scanned = ?, total_rows = ?, priority_rows = ?, excluded_rows = ?,
		 observation_types = ?, participants = ?, elapsed_ms = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC(), errMsg,
		stats.SourcesScanned, stats.TotalRows, stats.PriorityRows, stats.ExcludedRows,
		stats.ObservationTypes, stats.Participants, stats.Elapsed.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, status, started_at, completed_at, error,
		 sources_scanned, total_rows, priority_rows, excluded_rows,
		 observation_types, participants, elapsed_ms
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently started completed run, or nil when
// no run has completed yet.
func (s *SQLiteStore) LatestRun() (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, status, started_at, completed_at, error,
		 sources_scanned, total_rows, priority_rows, excluded_rows,
		 observation_types, participants, elapsed_ms
		 FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`,
		string(RunStatusCompleted))

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs ordered most recent first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, status, started_at, completed_at, error,
		 sources_scanned, total_rows, priority_rows, excluded_rows,
		 observation_types, participants, elapsed_ms
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteOldRuns keeps the most recent keep runs; report rows cascade.
func (s *SQLiteStore) DeleteOldRuns(keep int) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if keep <= 0 {
		return nil
	}

	_, err := s.db.Exec(
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("failed to delete old runs: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	run := &Run{}
	var (
		status      string
		completedAt sql.NullTime
		elapsedMS   int64
	)
	if err := sc.Scan(&run.ID, &status, &run.StartedAt, &completedAt, &run.Error,
		&run.Stats.SourcesScanned, &run.Stats.TotalRows,
		&run.Stats.PriorityRows, &run.Stats.ExcludedRows,
		&run.Stats.ObservationTypes, &run.Stats.Participants, &elapsedMS); err != nil {
		return nil, err
	}
	run.Stats.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	run.Status = RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}
