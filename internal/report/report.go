// Package report assembles and renders the finalized output of a QA/QC
// run: the per-source diagnostics table, the per-type measurement summary
// table, and the quick stats footer. Reports render as terminal tables,
// Markdown, JSON, or TSV, and can be written out as timestamped TSV files
// or as a paste-ready sheet export.
package report

import (
	"time"

	"github.com/cohortkit/harmonyqc/internal/engine"
	"github.com/cohortkit/harmonyqc/internal/qaqc"
	"github.com/cohortkit/harmonyqc/internal/state"
)

// QuickStats are the run-wide totals printed after the tables.
type QuickStats struct {
	SourcesScanned   int           `json:"sources_scanned"`
	TotalRows        int64         `json:"total_rows"`
	PriorityRows     int64         `json:"priority_rows"`
	ExcludedRows     int64         `json:"excluded_rows"`
	ObservationTypes int           `json:"observation_types"`
	Participants     int64         `json:"participants"`
	Elapsed          time.Duration `json:"elapsed_ns,omitempty"`
}

// Failure is a source that could not be scanned during a keep-going run.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Report is a fully assembled QA/QC report, either fresh from the engine
// or reloaded from the state store.
type Report struct {
	RunID       string                `json:"run_id,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
	Diagnostics []qaqc.DiagnosticsRow `json:"diagnostics"`
	Summary     []qaqc.SummaryRow     `json:"summary"`
	Failures    []Failure             `json:"failures,omitempty"`
	Stats       QuickStats            `json:"stats"`
}

// FromResult assembles a report from a live engine run.
func FromResult(res *engine.Result) *Report {
	r := &Report{
		GeneratedAt: time.Now(),
		Diagnostics: res.Diagnostics,
		Summary:     res.Summary,
		Stats: QuickStats{
			SourcesScanned:   res.SourcesScanned,
			TotalRows:        res.TotalRows,
			PriorityRows:     res.PriorityRows,
			ExcludedRows:     res.ExcludedRows,
			ObservationTypes: res.ObservationTypes,
			Participants:     res.Participants,
			Elapsed:          res.Elapsed,
		},
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, Failure{Source: f.Source.Path, Error: f.Err.Error()})
	}
	return r
}

// FromRun assembles a report from a stored run and its report rows.
func FromRun(run *state.Run, diags []qaqc.DiagnosticsRow, summary []qaqc.SummaryRow) *Report {
	generated := run.StartedAt
	if run.CompletedAt != nil {
		generated = *run.CompletedAt
	}
	return &Report{
		RunID:       run.ID,
		GeneratedAt: generated,
		Diagnostics: diags,
		Summary:     summary,
		Stats: QuickStats{
			SourcesScanned:   run.Stats.SourcesScanned,
			TotalRows:        run.Stats.TotalRows,
			PriorityRows:     run.Stats.PriorityRows,
			ExcludedRows:     run.Stats.ExcludedRows,
			ObservationTypes: run.Stats.ObservationTypes,
			Participants:     run.Stats.Participants,
			Elapsed:          run.Stats.Elapsed,
		},
	}
}
