// Package config provides configuration management for the harmonyqc CLI.
// Values are layered from defaults, an optional harmonyqc.yaml file, the
// HARMONYQC_ environment, and command-line flags, highest last.
package config

import (
	"github.com/cohortkit/harmonyqc/internal/qaqc"
	"github.com/cohortkit/harmonyqc/internal/source"
)

// Config holds all CLI configuration options.
type Config struct {
	SourcesDir   string   `koanf:"sources_dir"`
	DirPattern   string   `koanf:"dir_pattern"`
	FilePattern  string   `koanf:"file_pattern"`
	Vocabulary   string   `koanf:"vocabulary"`
	StatePath    string   `koanf:"state_path"`
	OutputDir    string   `koanf:"output_dir"`
	OutputFormat string   `koanf:"output"`
	Workers      int      `koanf:"workers"`
	FailFast     bool     `koanf:"fail_fast"`
	TopExcluded  int      `koanf:"top_excluded"`
	NullTokens   []string `koanf:"null_tokens"`
	SheetLabels  string   `koanf:"sheet_labels"`
	KeepRuns     int      `koanf:"keep_runs"`
	Verbose      bool     `koanf:"verbose"`

	// ProjectRoot is inferred at load time, not read from the file.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultSourcesDir  = "."
	DefaultVocabFile   = "harmonized_vars.tsv"
	DefaultStateFile   = ".harmonyqc/state.db"
	DefaultOutputDir   = "qaqc_output"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTopExcluded = qaqc.DefaultTopExcluded
)

// DefaultConfig returns a Config populated with defaults only.
func DefaultConfig() *Config {
	return &Config{
		SourcesDir:   DefaultSourcesDir,
		DirPattern:   source.DefaultDirPattern,
		FilePattern:  source.DefaultFilePattern,
		Vocabulary:   DefaultVocabFile,
		StatePath:    DefaultStateFile,
		OutputDir:    DefaultOutputDir,
		OutputFormat: DefaultOutput,
		TopExcluded:  DefaultTopExcluded,
		NullTokens:   append([]string(nil), source.DefaultNullTokens...),
	}
}
