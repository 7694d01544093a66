package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cohortkit/harmonyqc/internal/report"
	"github.com/cohortkit/harmonyqc/internal/state"
)

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Re-render a stored run without rescanning",
		Long: `Render the report of a stored run. With no argument the latest
completed run is used. Run IDs may be abbreviated to a unique prefix.

With --sheet the measurement summary is emitted as a paste-ready TSV
block whose rows follow a fixed variable label order, one line per label
and blank lines for labels the run produced no data for.`,
		Example: `  # Render the latest completed run
  harmonyqc report

  # Render a specific run as Markdown
  harmonyqc report 4f1c29aa -o markdown

  # Paste-ready sheet export with a custom label order
  harmonyqc report --sheet --labels table_s5_labels.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args)
		},
	}
	cmd.Flags().Bool("sheet", false, "Emit the paste-ready sheet export instead of the report tables")
	cmd.Flags().String("labels", "", "Path to a label order file for --sheet (one label per line)")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	var run *state.Run
	if len(args) == 1 {
		run, err = findRun(store, args[0])
	} else {
		run, err = store.LatestRun()
		if err == nil && run == nil {
			err = fmt.Errorf("no completed runs recorded. Run \"harmonyqc run\" first")
		}
	}
	if err != nil {
		return err
	}

	diags, summary, err := store.GetReport(run.ID)
	if err != nil {
		return err
	}

	if sheet, _ := cmd.Flags().GetBool("sheet"); sheet {
		labels, err := sheetLabels(cmd, cmdCtx)
		if err != nil {
			return err
		}
		return report.WriteSheet(cmd.OutOrStdout(), summary, labels)
	}

	rep := report.FromRun(run, diags, summary)
	return report.Render(cmd.OutOrStdout(), rep, cmdCtx.ReportFormat())
}

// sheetLabels resolves the label order: --labels flag, then the configured
// sheet_labels file, then the built-in default order.
func sheetLabels(cmd *cobra.Command, cmdCtx *CommandContext) ([]string, error) {
	path, _ := cmd.Flags().GetString("labels")
	if path == "" {
		path = cmdCtx.Cfg.SheetLabels
	}
	if path == "" {
		return nil, nil
	}
	return report.LoadSheetLabels(path)
}

// findRun looks a run up by full ID, falling back to unique-prefix match.
func findRun(store state.Store, id string) (*state.Run, error) {
	run, err := store.GetRun(id)
	if err == nil {
		return run, nil
	}

	runs, listErr := store.ListRuns(1000)
	if listErr != nil {
		return nil, err
	}
	var matches []*state.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, err
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}
