package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
)

// timestampLayout names output files by run time, e.g.
// diagnostics_20260830_141502.tsv.
const timestampLayout = "20060102_150405"

// Files are the TSV report files written by a run.
type Files struct {
	Diagnostics string
	Summary     string
}

// WriteFiles writes the diagnostics and measurement summary tables as
// timestamped TSV files under dir, creating it if needed. Values are raw,
// not display-formatted.
func WriteFiles(dir string, r *Report, now time.Time) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("failed to create output dir: %w", err)
	}

	ts := now.Format(timestampLayout)
	out := Files{
		Diagnostics: filepath.Join(dir, fmt.Sprintf("diagnostics_%s.tsv", ts)),
		Summary:     filepath.Join(dir, fmt.Sprintf("measurement_summary_%s.tsv", ts)),
	}

	if err := writeFile(out.Diagnostics, func(w io.Writer) error {
		return writeDiagnosticsTSV(w, r.Diagnostics)
	}); err != nil {
		return Files{}, err
	}
	if err := writeFile(out.Summary, func(w io.Writer) error {
		return writeSummaryTSV(w, r.Summary)
	}); err != nil {
		return Files{}, err
	}
	return out, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeDiagnosticsTSV(w io.Writer, diags []qaqc.DiagnosticsRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{
		"source_dir", "source_file", "total_rows", "priority_rows",
		"excluded_rows", "participants", "top_excluded",
	}); err != nil {
		return err
	}
	for _, d := range diags {
		if err := cw.Write([]string{
			d.SourceDir, d.SourceFile,
			strconv.FormatInt(d.TotalRows, 10),
			strconv.FormatInt(d.PriorityRows, 10),
			strconv.FormatInt(d.ExcludedRows, 10),
			strconv.FormatInt(d.Participants, 10),
			FormatTopExcluded(d.TopExcluded),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeSummaryTSV(w io.Writer, summary []qaqc.SummaryRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{
		"observation_type", "label", "n", "nulls_missing", "participants",
		"mean", "median", "min", "max", "sd", "error",
	}); err != nil {
		return err
	}
	for _, row := range summary {
		if err := cw.Write([]string{
			row.ObservationType, row.Label,
			strconv.FormatInt(row.N, 10),
			strconv.FormatInt(row.NullsMissing, 10),
			strconv.FormatInt(row.Participants, 10),
			rawStat(row.Mean), rawStat(row.Median),
			rawStat(row.Min), rawStat(row.Max), rawStat(row.SD),
			row.Err,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
