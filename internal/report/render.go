package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format selects how a report is rendered.
type Format string

// Render formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatTSV      Format = "tsv"
)

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "text":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "tsv":
		return FormatTSV, nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// printer commafies integers and floats at display time only. Stored and
// TSV values stay raw.
var printer = message.NewPrinter(language.English)

// Render writes the report to w in the given format.
func Render(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatTSV:
		return renderTSV(w, r)
	case FormatMarkdown:
		return renderTables(w, r, true)
	default:
		return renderTables(w, r, false)
	}
}

func renderTables(w io.Writer, r *Report, markdown bool) error {
	section(w, "DIAGNOSTICS BY FILE", markdown)
	renderDiagnosticsTable(w, r, markdown)

	section(w, "MEASUREMENT SUMMARY", markdown)
	renderSummaryTable(w, r, markdown)

	section(w, "QUICK STATS", markdown)
	_, _ = printer.Fprintf(w, "Total rows loaded: %d\n", r.Stats.TotalRows)
	_, _ = printer.Fprintf(w, "Unique observation types: %d\n", r.Stats.ObservationTypes)
	_, _ = printer.Fprintf(w, "Unique participants: %d\n", r.Stats.Participants)
	if r.Stats.Elapsed > 0 {
		_, _ = printer.Fprintf(w, "Scanned %d sources in %v\n", r.Stats.SourcesScanned, r.Stats.Elapsed.Round(10*time.Millisecond))
	}
	if r.Stats.ExcludedRows > 0 {
		_, _ = printer.Fprintf(w, "\nNOTE: %d rows with non-priority observation types were excluded\n", r.Stats.ExcludedRows)
	}

	if len(r.Failures) > 0 {
		section(w, "FAILED SOURCES", markdown)
		for _, f := range r.Failures {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", f.Source, f.Error)
		}
	}
	return nil
}

func section(w io.Writer, title string, markdown bool) {
	if markdown {
		_, _ = fmt.Fprintf(w, "\n## %s\n\n", title)
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 80))
	_, _ = fmt.Fprintln(w, title)
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 80))
}

func renderDiagnosticsTable(w io.Writer, r *Report, markdown bool) {
	if len(r.Diagnostics) == 0 {
		_, _ = fmt.Fprintln(w, "(0 sources)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Dir", "File", "Total Rows", "Priority Rows", "Excluded Rows", "Participants", "Top Excluded"})
	for _, d := range r.Diagnostics {
		t.AppendRow(table.Row{
			d.SourceDir, d.SourceFile,
			commafy(d.TotalRows), commafy(d.PriorityRows), commafy(d.ExcludedRows),
			commafy(d.Participants),
			FormatTopExcluded(d.TopExcluded),
		})
	}
	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
}

func renderSummaryTable(w io.Writer, r *Report, markdown bool) {
	if len(r.Summary) == 0 {
		_, _ = fmt.Fprintln(w, "(0 observation types)")
		return
	}

	withErrors := false
	for _, row := range r.Summary {
		if row.Err != "" {
			withErrors = true
			break
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := table.Row{"Type", "Label", "N", "Nulls/Missing", "Mean", "Median", "Min", "Max", "SD", "Participants"}
	if withErrors {
		header = append(header, "Error")
	}
	t.AppendHeader(header)
	for _, row := range r.Summary {
		cells := table.Row{
			row.ObservationType, row.Label,
			commafy(row.N), commafy(row.NullsMissing),
			displayStat(row.Mean), displayStat(row.Median),
			displayStat(row.Min), displayStat(row.Max), displayStat(row.SD),
			commafy(row.Participants),
		}
		if withErrors {
			cells = append(cells, row.Err)
		}
		t.AppendRow(cells)
	}
	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
}

func renderTSV(w io.Writer, r *Report) error {
	if err := writeDiagnosticsTSV(w, r.Diagnostics); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return writeSummaryTSV(w, r.Summary)
}

// FormatTopExcluded renders an ordered exclusion histogram as
// "{code: count, code: count}". Empty histograms render as "{}".
func FormatTopExcluded(top []qaqc.ExcludedCount) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range top {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Code)
		b.WriteString(": ")
		b.WriteString(strconv.FormatInt(e.Count, 10))
	}
	b.WriteByte('}')
	return b.String()
}

func commafy[T int | int64](n T) string {
	return printer.Sprintf("%d", int64(n))
}

// displayStat renders a statistic commafied at 2 decimal places, or empty
// when the statistic is undefined.
func displayStat(v *float64) string {
	if v == nil {
		return ""
	}
	return printer.Sprintf("%.2f", *v)
}

// rawStat renders a statistic at full precision for TSV outputs.
func rawStat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
