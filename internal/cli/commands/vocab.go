package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cohortkit/harmonyqc/internal/cli/output"
)

// NewVocabCommand creates the vocab command.
func NewVocabCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab",
		Short: "Show the loaded priority vocabulary",
		Long: `Load the priority variable vocabulary and list every code with its
display label.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVocab(cmd)
		},
	}
}

func runVocab(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	v, err := cmdCtx.LoadVocabulary()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	codes := v.Codes()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		labels := make(map[string]string, len(codes))
		for _, code := range codes {
			labels[code] = v.Label(code)
		}
		enc := json.NewEncoder(r.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(labels)
	case output.ModeTSV:
		if _, err := fmt.Fprintln(r.Out(), "var_name\tvar_label"); err != nil {
			return err
		}
		for _, code := range codes {
			if _, err := fmt.Fprintf(r.Out(), "%s\t%s\n", code, v.Label(code)); err != nil {
				return err
			}
		}
		return nil
	}

	r.Header(1, fmt.Sprintf("Priority Vocabulary (%d variables)", v.Len()))
	r.Dim("Loaded from %s", cmdCtx.Cfg.Vocabulary)

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Code", "Label"})
	for _, code := range codes {
		t.AppendRow(table.Row{code, v.Label(code)})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}
