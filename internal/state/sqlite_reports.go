package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
)

// SaveReport stores finalized report rows for a run in one transaction.
func (s *SQLiteStore) SaveReport(runID string, diags []qaqc.DiagnosticsRow, summary []qaqc.SummaryRow) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	diagStmt, err := tx.Prepare(
		`INSERT INTO source_diagnostics
		 (run_id, source_dir, source_file, total_rows, priority_rows, excluded_rows, participants, top_excluded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare diagnostics insert: %w", err)
	}
	defer diagStmt.Close()

	for _, d := range diags {
		topJSON, err := json.Marshal(d.TopExcluded)
		if err != nil {
			return fmt.Errorf("failed to encode top_excluded for %s: %w", d.SourceFile, err)
		}
		if _, err := diagStmt.Exec(runID, d.SourceDir, d.SourceFile,
			d.TotalRows, d.PriorityRows, d.ExcludedRows, d.Participants, string(topJSON)); err != nil {
			return fmt.Errorf("failed to insert diagnostics for %s: %w", d.SourceFile, err)
		}
	}

	sumStmt, err := tx.Prepare(
		`INSERT INTO type_summaries
		 (run_id, observation_type, label, n, nulls_missing, participants, mean, median, min, max, sd, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary insert: %w", err)
	}
	defer sumStmt.Close()

	for _, row := range summary {
		if _, err := sumStmt.Exec(runID, row.ObservationType, row.Label,
			row.N, row.NullsMissing, row.Participants,
			nullFloat(row.Mean), nullFloat(row.Median), nullFloat(row.Min),
			nullFloat(row.Max), nullFloat(row.SD), row.Err); err != nil {
			return fmt.Errorf("failed to insert summary for %s: %w", row.ObservationType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// GetReport loads the stored report rows for a run, in report order.
func (s *SQLiteStore) GetReport(runID string) ([]qaqc.DiagnosticsRow, []qaqc.SummaryRow, error) {
	if s.db == nil {
		return nil, nil, fmt.Errorf("database not opened")
	}

	diags, err := s.getDiagnostics(runID)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.getSummaries(runID)
	if err != nil {
		return nil, nil, err
	}
	return diags, summary, nil
}

func (s *SQLiteStore) getDiagnostics(runID string) ([]qaqc.DiagnosticsRow, error) {
	rows, err := s.db.Query(
		`SELECT source_dir, source_file, total_rows, priority_rows, excluded_rows, participants, top_excluded
		 FROM source_diagnostics WHERE run_id = ?
		 ORDER BY source_dir, source_file`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []qaqc.DiagnosticsRow
	for rows.Next() {
		var d qaqc.DiagnosticsRow
		var topJSON string
		if err := rows.Scan(&d.SourceDir, &d.SourceFile, &d.TotalRows,
			&d.PriorityRows, &d.ExcludedRows, &d.Participants, &topJSON); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostics: %w", err)
		}
		if err := json.Unmarshal([]byte(topJSON), &d.TopExcluded); err != nil {
			return nil, fmt.Errorf("failed to decode top_excluded for %s: %w", d.SourceFile, err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

func (s *SQLiteStore) getSummaries(runID string) ([]qaqc.SummaryRow, error) {
	rows, err := s.db.Query(
		`SELECT observation_type, label, n, nulls_missing, participants, mean, median, min, max, sd, error
		 FROM type_summaries WHERE run_id = ?
		 ORDER BY observation_type`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summary []qaqc.SummaryRow
	for rows.Next() {
		var row qaqc.SummaryRow
		var mean, median, minV, maxV, sd sql.NullFloat64
		if err := rows.Scan(&row.ObservationType, &row.Label, &row.N,
			&row.NullsMissing, &row.Participants,
			&mean, &median, &minV, &maxV, &sd, &row.Err); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		row.Mean = floatPtr(mean)
		row.Median = floatPtr(median)
		row.Min = floatPtr(minV)
		row.Max = floatPtr(maxV)
		row.SD = floatPtr(sd)
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
