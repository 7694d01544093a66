package commands

import (
	"encoding/json"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cohortkit/harmonyqc/internal/cli/output"
	"github.com/cohortkit/harmonyqc/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored QA/QC runs",
		Long: `List past runs recorded in the state store, most recent first. Use
"harmonyqc report <run-id>" to re-render a stored run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd)
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	return cmd
}

// historyEntry is the JSON shape of one listed run.
type historyEntry struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	SourcesScanned int       `json:"sources_scanned"`
	TotalRows      int64     `json:"total_rows"`
	Error          string    `json:"error,omitempty"`
}

func runHistory(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		entries := make([]historyEntry, 0, len(runs))
		for _, run := range runs {
			entries = append(entries, historyEntry{
				ID:             run.ID,
				Status:         string(run.Status),
				StartedAt:      run.StartedAt,
				SourcesScanned: run.Stats.SourcesScanned,
				TotalRows:      run.Stats.TotalRows,
				Error:          run.Error,
			})
		}
		enc := json.NewEncoder(r.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	r.Header(1, "Run History")
	if len(runs) == 0 {
		r.Println("No runs recorded yet. Run \"harmonyqc run\" first.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run ID", "Status", "Started", "Sources", "Total Rows", "Elapsed"})
	for _, run := range runs {
		elapsed := ""
		if run.Stats.Elapsed > 0 {
			elapsed = run.Stats.Elapsed.Round(10 * time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			shortID(run.ID),
			statusCell(run),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Stats.SourcesScanned,
			run.Stats.TotalRows,
			elapsed,
		})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

// shortID abbreviates a run UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusCell(run *state.Run) string {
	if run.Status == state.RunStatusFailed && run.Error != "" {
		return string(run.Status) + ": " + run.Error
	}
	return string(run.Status)
}
