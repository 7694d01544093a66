package config

import "fmt"

// validOutputs are the accepted values for the output option.
var validOutputs = map[string]bool{
	"":         true,
	"auto":     true,
	"text":     true,
	"md":       true,
	"markdown": true,
	"json":     true,
	"tsv":      true,
}

// Validate checks a loaded configuration for values no command can work
// with.
func Validate(cfg *Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.TopExcluded < 1 {
		return fmt.Errorf("top_excluded must be >= 1, got %d", cfg.TopExcluded)
	}
	if cfg.KeepRuns < 0 {
		return fmt.Errorf("keep_runs must be >= 0, got %d", cfg.KeepRuns)
	}
	if !validOutputs[cfg.OutputFormat] {
		return fmt.Errorf("unknown output format: %q", cfg.OutputFormat)
	}
	if cfg.SourcesDir == "" {
		return fmt.Errorf("sources_dir must not be empty")
	}
	return nil
}
