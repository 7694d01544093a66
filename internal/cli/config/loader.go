package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/cohortkit/harmonyqc/internal/source"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

// configFileNames are the recognized config file names, in priority order.
var configFileNames = []string{"harmonyqc.yaml", "harmonyqc.yml"}

// Package-level koanf instance and config file tracking.
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// ResetConfig resets the loader's package state. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

func configExistsIn(dir string) bool {
	for _, name := range configFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a harmonyqc
// config file. Returns empty string if none is found.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Infer from --sources-dir (parent if it contains a config file)
//  2. Search upward from CWD for harmonyqc.yaml
//  3. Current working directory
func inferProjectRoot(flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("sources-dir") {
		if sourcesDir, _ := flags.GetString("sources-dir"); sourcesDir != "" {
			if abs, err := filepath.Abs(sourcesDir); err == nil {
				if configExistsIn(abs) {
					return abs
				}
				if parent := filepath.Dir(abs); configExistsIn(parent) {
					return parent
				}
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not
// absolute. Empty paths pass through unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// flagToKey maps kebab-case flag names to config keys, bridging the few
// flags whose names differ from their keys.
func flagToKey(name string) string {
	switch name {
	case "state":
		return "state_path"
	case "vocab":
		return "vocabulary"
	}
	return strings.ReplaceAll(name, "-", "_")
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file >
// defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	projectRoot := inferProjectRoot(flags)

	// Paths given as flags are relative to CWD, not the project root.
	// Pre-resolve them so the project-root resolution step below leaves
	// them alone.
	flagPaths := map[string]string{}
	if flags != nil {
		for flagName := range map[string]bool{"sources-dir": true, "vocab": true, "state": true, "output-dir": true, "sheet-labels": true} {
			if !flags.Changed(flagName) {
				continue
			}
			if v, _ := flags.GetString(flagName); v != "" && v != ":memory:" {
				if abs, err := filepath.Abs(v); err == nil {
					flagPaths[flagToKey(flagName)] = abs
				}
			}
		}
	}

	// If an explicit config file is given, its directory is the project
	// root unless flags implied one.
	if cfgFile != "" && projectRoot == inferProjectRoot(nil) {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"sources_dir":  DefaultSourcesDir,
		"dir_pattern":  source.DefaultDirPattern,
		"file_pattern": source.DefaultFilePattern,
		"vocabulary":   DefaultVocabFile,
		"state_path":   DefaultStateFile,
		"output_dir":   DefaultOutputDir,
		"output":       DefaultOutput,
		"workers":      0,
		"fail_fast":    false,
		"top_excluded": DefaultTopExcluded,
		"null_tokens":  source.DefaultNullTokens,
		"keep_runs":    0,
		"verbose":      false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, searched in the project root unless given explicitly
	if cfgFile == "" {
		for _, name := range configFileNames {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: HARMONYQC_SOURCES_DIR -> sources_dir
	if err := k.Load(env.Provider("HARMONYQC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "HARMONYQC_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, highest priority
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagToKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve relative paths against the project root, except paths
	// that came in as flags, which are already absolute.
	cfg.ProjectRoot = projectRoot
	resolve := func(key string, p *string) {
		if abs, ok := flagPaths[key]; ok {
			*p = abs
			return
		}
		if *p != ":memory:" {
			*p = resolvePathRelativeTo(*p, projectRoot)
		}
	}
	resolve("sources_dir", &cfg.SourcesDir)
	resolve("vocabulary", &cfg.Vocabulary)
	resolve("state_path", &cfg.StatePath)
	resolve("output_dir", &cfg.OutputDir)
	resolve("sheet_labels", &cfg.SheetLabels)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the most recently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger. This lets
// the commands package retrieve the logger from context without an import
// cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
