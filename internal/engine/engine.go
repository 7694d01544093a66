// Package engine orchestrates a QA/QC run: it discovers harmonized source
// files, streams and classifies their rows, and finalizes per-source
// diagnostics and cross-source summary statistics.
package engine

import (
	"log/slog"
	"runtime"

	"github.com/cohortkit/harmonyqc/internal/qaqc"
	"github.com/cohortkit/harmonyqc/internal/source"
)

// Config holds engine configuration.
type Config struct {
	// SourcesDir is the directory containing *-remapped cohort directories.
	SourcesDir string
	// DirPattern and FilePattern select the source files to scan.
	// Empty values use the harmonized output defaults.
	DirPattern  string
	FilePattern string
	// Workers caps concurrent source scans; 0 means GOMAXPROCS.
	Workers int
	// FailFast aborts the whole run on the first source read failure.
	// When false, failed sources are reported and the run continues.
	FailFast bool
	// TopExcluded is the number of exclusion codes kept per source.
	TopExcluded int
	// NullTokens overrides the value spellings treated as missing.
	NullTokens []string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Engine drives the scan. The vocabulary is injected at construction and
// frozen for the engine's lifetime.
type Engine struct {
	cfg    Config
	vocab  qaqc.Vocabulary
	logger *slog.Logger
}

// New creates an engine for one vocabulary.
func New(cfg Config, vocab qaqc.Vocabulary) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.TopExcluded <= 0 {
		cfg.TopExcluded = qaqc.DefaultTopExcluded
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{cfg: cfg, vocab: vocab, logger: logger}
}

// Discover lists the source files the engine would scan, in report order.
func (e *Engine) Discover() ([]source.Source, error) {
	return source.Discover(e.cfg.SourcesDir, e.cfg.DirPattern, e.cfg.FilePattern)
}
