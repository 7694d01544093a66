package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cohortkit/harmonyqc/internal/cli/config"
	"github.com/cohortkit/harmonyqc/internal/cli/output"
	"github.com/cohortkit/harmonyqc/internal/engine"
	"github.com/cohortkit/harmonyqc/internal/report"
	"github.com/cohortkit/harmonyqc/internal/state"
	"github.com/cohortkit/harmonyqc/internal/vocab"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration
// and the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the loaded configuration, falling back to defaults
// when no load has happened (direct command construction in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.DefaultConfig()
}

// LoadVocabulary loads the priority variable vocabulary from the
// configured path.
func (c *CommandContext) LoadVocabulary() (*vocab.Vocabulary, error) {
	v, err := vocab.Load(c.Cfg.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return v, nil
}

// NewEngine builds a scan engine from the configuration.
func (c *CommandContext) NewEngine(v *vocab.Vocabulary, failFast bool) *engine.Engine {
	return engine.New(engine.Config{
		SourcesDir:  c.Cfg.SourcesDir,
		DirPattern:  c.Cfg.DirPattern,
		FilePattern: c.Cfg.FilePattern,
		Workers:     c.Cfg.Workers,
		FailFast:    failFast,
		TopExcluded: c.Cfg.TopExcluded,
		NullTokens:  c.Cfg.NullTokens,
		Logger:      c.Logger,
	}, v)
}

// OpenStore opens the run history store, creating its directory if
// needed. The returned cleanup must be called (typically via defer).
func (c *CommandContext) OpenStore() (state.Store, func(), error) {
	path := c.Cfg.StatePath
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(path); err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// ReportFormat resolves the effective output mode to a report format.
func (c *CommandContext) ReportFormat() report.Format {
	switch c.Renderer.EffectiveMode() {
	case output.ModeJSON:
		return report.FormatJSON
	case output.ModeTSV:
		return report.FormatTSV
	case output.ModeMarkdown:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}
