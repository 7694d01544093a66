package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
)

func sampleReport() *Report {
	mean, median, sd := 30.0, 30.0, 7.0710678118654755
	lo, hi := 25.0, 35.0
	return &Report{
		GeneratedAt: time.Date(2026, 8, 30, 14, 15, 2, 0, time.UTC),
		Diagnostics: []qaqc.DiagnosticsRow{
			{
				SourceDir:    "aric-remapped",
				SourceFile:   "aric_MeasurementObservation_v1.tsv",
				TotalRows:    1234567,
				PriorityRows: 1200000,
				ExcludedRows: 34567,
				Participants: 15000,
				TopExcluded: []qaqc.ExcludedCount{
					{Code: "OBA:VT0000188", Count: 30000},
					{Code: "OBA:VT0000090", Count: 4567},
				},
			},
		},
		Summary: []qaqc.SummaryRow{
			{
				ObservationType: "bmi", Label: "BMI",
				N: 2, NullsMissing: 1, Participants: 2,
				Mean: &mean, Median: &median, Min: &lo, Max: &hi, SD: &sd,
			},
			{
				ObservationType: "cesd_score", Label: "CESD score",
				N: 0, NullsMissing: 4, Participants: 4,
			},
		},
		Stats: QuickStats{
			SourcesScanned:   1,
			TotalRows:        1234567,
			PriorityRows:     1200000,
			ExcludedRows:     34567,
			ObservationTypes: 2,
			Participants:     15000,
			Elapsed:          2 * time.Second,
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"json", FormatJSON, false},
		{"tsv", FormatTSV, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatTopExcluded(t *testing.T) {
	assert.Equal(t, "{}", FormatTopExcluded(nil))
	assert.Equal(t, "{a: 1}", FormatTopExcluded([]qaqc.ExcludedCount{{Code: "a", Count: 1}}))
	assert.Equal(t, "{b: 5, a: 2}", FormatTopExcluded([]qaqc.ExcludedCount{
		{Code: "b", Count: 5}, {Code: "a", Count: 2},
	}))
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatText))
	out := buf.String()

	assert.Contains(t, out, "DIAGNOSTICS BY FILE")
	assert.Contains(t, out, "MEASUREMENT SUMMARY")
	assert.Contains(t, out, "QUICK STATS")
	assert.Contains(t, out, "aric-remapped")
	// Display formatting commafies counts and rounds stats.
	assert.Contains(t, out, "1,234,567")
	assert.Contains(t, out, "7.07")
	assert.Contains(t, out, "{OBA:VT0000188: 30000, OBA:VT0000090: 4567}")
	assert.Contains(t, out, "Total rows loaded: 1,234,567")
	assert.Contains(t, out, "Unique observation types: 2")
	assert.Contains(t, out, "NOTE: 34,567 rows with non-priority observation types were excluded")
}

func TestRenderText_NoExclusionsNoNote(t *testing.T) {
	r := sampleReport()
	r.Stats.ExcludedRows = 0

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatText))
	assert.NotContains(t, buf.String(), "NOTE:")
}

func TestRenderText_Failures(t *testing.T) {
	r := sampleReport()
	r.Failures = []Failure{{Source: "mesa-remapped/broken.tsv", Error: "missing required columns"}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatText))
	assert.Contains(t, buf.String(), "FAILED SOURCES")
	assert.Contains(t, buf.String(), "mesa-remapped/broken.tsv: missing required columns")
}

func TestRenderText_ErrorColumnOnlyWhenPresent(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatText))
	assert.NotContains(t, buf.String(), "Error")

	r.Summary[0].Err = "numeric overflow"
	buf.Reset()
	require.NoError(t, Render(&buf, r, FormatText))
	assert.Contains(t, buf.String(), "numeric overflow")
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatMarkdown))
	out := buf.String()

	assert.Contains(t, out, "## DIAGNOSTICS BY FILE")
	assert.Contains(t, out, "## QUICK STATS")
	assert.Contains(t, out, "| ")
	assert.Contains(t, out, "TOTAL ROWS")
}

func TestRenderJSON(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatJSON))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, r.Diagnostics, got.Diagnostics)
	assert.Equal(t, r.Summary, got.Summary)
	assert.Equal(t, r.Stats, got.Stats)
}

func TestRenderTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatTSV))
	out := buf.String()

	lines := strings.Split(out, "\n")
	assert.Equal(t, "source_dir\tsource_file\ttotal_rows\tpriority_rows\texcluded_rows\tparticipants\ttop_excluded", lines[0])
	// Raw values in TSV, no thousands separators.
	assert.Contains(t, out, "\t1234567\t")
	assert.Contains(t, out, "7.0710678118654755")
	assert.Contains(t, out, "observation_type\tlabel\tn\tnulls_missing\tparticipants\tmean\tmedian\tmin\tmax\tsd\terror")
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qaqc_output")
	now := time.Date(2026, 8, 30, 14, 15, 2, 0, time.UTC)

	files, err := WriteFiles(dir, sampleReport(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "diagnostics_20260830_141502.tsv"), files.Diagnostics)
	assert.Equal(t, filepath.Join(dir, "measurement_summary_20260830_141502.tsv"), files.Summary)

	diag, err := os.ReadFile(files.Diagnostics)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(diag), "source_dir\t"))
	assert.Contains(t, string(diag), "aric-remapped")

	sum, err := os.ReadFile(files.Summary)
	require.NoError(t, err)
	assert.Contains(t, string(sum), "bmi\tBMI\t2\t1\t2\t30\t30\t25\t35\t7.0710678118654755\t")
}

func TestWriteSheet(t *testing.T) {
	r := sampleReport()
	labels := []string{"BMI", "Height", "CESD score"}

	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, r.Summary, labels))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	// n, nulls_missing, mean, median, max, min, sd, enums, participants
	assert.Equal(t, "2\t1\t30\t30\t35\t25\t7.0710678118654755\t\t2", lines[0])
	// Height has no summary row: blank fields only.
	assert.Equal(t, strings.Repeat("\t", 8), lines[1])
	// All-null type emits counts with empty statistics.
	assert.Equal(t, "0\t4\t\t\t\t\t\t\t4", lines[2])
}

func TestWriteSheet_DefaultLabelsOneLinePerLabel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSheet(&buf, nil, nil))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, len(DefaultSheetLabels))
}

func TestLoadSheetLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("# Table row order\nBMI\n\nHeight\n"), 0o644))

	labels, err := LoadSheetLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BMI", "Height"}, labels)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n#only comments\n"), 0o644))
	_, err = LoadSheetLabels(empty)
	assert.Error(t, err)
}
