package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cohortkit/harmonyqc/internal/cli/output"
	"github.com/cohortkit/harmonyqc/internal/report"
	"github.com/cohortkit/harmonyqc/internal/state"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"scan"},
		Short:   "Scan all sources and generate the QA/QC report",
		Long: `Scan every MeasurementObservation file under the sources directory,
classify rows against the priority vocabulary, and report per-source
diagnostics plus cross-source summary statistics.

The completed run is saved to the state store and the report tables are
written as timestamped TSV files, unless disabled.`,
		Example: `  # Scan with defaults (harmonyqc.yaml in or above the current directory)
  harmonyqc run

  # Scan a specific tree, stop at the first broken source
  harmonyqc run --sources-dir /data/harmonized --fail-fast

  # Report as JSON without persisting anything
  harmonyqc run --no-save --no-files -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd)
		},
	}

	cmd.Flags().Bool("fail-fast", false, "Stop at the first source that fails to scan")
	cmd.Flags().Bool("no-save", false, "Do not record the run in the state store")
	cmd.Flags().Bool("no-files", false, "Do not write TSV report files")
	return cmd
}

func runRun(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	noSave, _ := cmd.Flags().GetBool("no-save")
	noFiles, _ := cmd.Flags().GetBool("no-files")
	failFast, _ := cmd.Flags().GetBool("fail-fast")

	return executeRun(cmd, cmdCtx, runOptions{
		save:       !noSave,
		writeFiles: !noFiles,
		failFast:   failFast || cmdCtx.Cfg.FailFast,
	})
}

// runOptions control one pipeline execution, shared by run and watch.
type runOptions struct {
	save       bool
	writeFiles bool
	failFast   bool
}

// executeRun runs the full pipeline: scan, persist, write files, render.
func executeRun(cmd *cobra.Command, cmdCtx *CommandContext, opts runOptions) error {
	v, err := cmdCtx.LoadVocabulary()
	if err != nil {
		return err
	}

	var (
		store   state.Store
		run     *state.Run
		cleanup func()
	)
	if opts.save {
		store, cleanup, err = cmdCtx.OpenStore()
		if err != nil {
			return err
		}
		defer cleanup()
		if run, err = store.CreateRun(); err != nil {
			return err
		}
	}

	eng := cmdCtx.NewEngine(v, opts.failFast)
	res, err := eng.Run(cmd.Context())
	if err != nil {
		if run != nil {
			_ = store.CompleteRun(run.ID, state.RunStatusFailed, err.Error(), state.RunStats{})
		}
		return err
	}

	rep := report.FromResult(res)
	if run != nil {
		rep.RunID = run.ID
		if err := store.SaveReport(run.ID, res.Diagnostics, res.Summary); err != nil {
			return err
		}
		if err := store.CompleteRun(run.ID, state.RunStatusCompleted, "", state.RunStats{
			SourcesScanned:   res.SourcesScanned,
			TotalRows:        res.TotalRows,
			PriorityRows:     res.PriorityRows,
			ExcludedRows:     res.ExcludedRows,
			ObservationTypes: res.ObservationTypes,
			Participants:     res.Participants,
			Elapsed:          res.Elapsed,
		}); err != nil {
			return err
		}
		if keep := cmdCtx.Cfg.KeepRuns; keep > 0 {
			if err := store.DeleteOldRuns(keep); err != nil {
				return err
			}
		}
	}

	if err := report.Render(cmd.OutOrStdout(), rep, cmdCtx.ReportFormat()); err != nil {
		return err
	}

	if opts.writeFiles {
		files, err := report.WriteFiles(cmdCtx.Cfg.OutputDir, rep, time.Now())
		if err != nil {
			return err
		}
		switch cmdCtx.Renderer.EffectiveMode() {
		case output.ModeJSON, output.ModeTSV:
			// Keep machine-readable output clean.
			cmdCtx.Renderer.Warning("Diagnostics saved to: %s", files.Diagnostics)
			cmdCtx.Renderer.Warning("Summary saved to: %s", files.Summary)
		default:
			cmdCtx.Renderer.Dim("\nDiagnostics saved to: %s", files.Diagnostics)
			cmdCtx.Renderer.Dim("Summary saved to: %s", files.Summary)
		}
	}

	if len(res.Failures) > 0 && !opts.failFast {
		return fmt.Errorf("%d of %d sources failed to scan", len(res.Failures), len(res.Failures)+res.SourcesScanned)
	}
	return nil
}
