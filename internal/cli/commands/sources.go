package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cohortkit/harmonyqc/internal/cli/output"
	"github.com/cohortkit/harmonyqc/internal/source"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List discovered source files",
		Long: `List the MeasurementObservation files that a run would scan, in scan
order, with their sizes.`,
		Example: `  # List sources under the configured directory
  harmonyqc sources

  # List sources as JSON
  harmonyqc sources -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSources(cmd)
		},
	}
}

func runSources(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	sources, err := source.Discover(cfg.SourcesDir, cfg.DirPattern, cfg.FilePattern)
	if err != nil {
		return fmt.Errorf("failed to discover sources: %w", err)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		enc := json.NewEncoder(r.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(sources)
	case output.ModeTSV:
		if _, err := fmt.Fprintln(r.Out(), "dir\tfile\tsize_bytes"); err != nil {
			return err
		}
		for _, s := range sources {
			if _, err := fmt.Fprintf(r.Out(), "%s\t%s\t%d\n", s.Dir, s.File, s.SizeBytes); err != nil {
				return err
			}
		}
		return nil
	}

	r.Header(1, fmt.Sprintf("Sources (%d found)", len(sources)))
	if len(sources) == 0 {
		r.Printf("No %s files under %s matching %s\n", cfg.FilePattern, cfg.SourcesDir, cfg.DirPattern)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Dir", "File", "Size"})
	for _, s := range sources {
		t.AppendRow(table.Row{s.Dir, s.File, formatSize(s.SizeBytes)})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

// formatSize renders a byte count with a binary unit suffix.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
