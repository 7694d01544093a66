package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlagSet mirrors the persistent flags the root command registers.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("sources-dir", "", "")
	fs.String("vocab", "", "")
	fs.String("state", "", "")
	fs.String("output-dir", "", "")
	fs.StringP("output", "o", "", "")
	fs.Int("workers", 0, "")
	fs.Bool("fail-fast", false, "")
	fs.Int("top-excluded", DefaultTopExcluded, "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "*-remapped", cfg.DirPattern)
	assert.Equal(t, "*MeasurementObservation*.tsv", cfg.FilePattern)
	assert.Equal(t, DefaultTopExcluded, cfg.TopExcluded)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, []string{"", "None"}, cfg.NullTokens)
	assert.False(t, cfg.FailFast)
	// Relative defaults resolve against the project root (CWD here).
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultVocabFile), cfg.Vocabulary)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
sources_dir: harmonized
vocabulary: vars/harmonized_vars.tsv
top_excluded: 10
fail_fast: true
null_tokens: ["", "None", "NA"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "harmonyqc.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "harmonized"), cfg.SourcesDir)
	assert.Equal(t, filepath.Join(dir, "vars", "harmonized_vars.tsv"), cfg.Vocabulary)
	assert.Equal(t, 10, cfg.TopExcluded)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, []string{"", "None", "NA"}, cfg.NullTokens)
	assert.Equal(t, filepath.Join(dir, "harmonyqc.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	t.Cleanup(ResetConfig)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "harmonyqc.yml"), []byte("top_excluded: 3\n"), 0o644))

	child := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(child, 0o755))
	t.Chdir(child)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.TopExcluded)
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "harmonyqc.yaml"), []byte("output: text\n"), 0o644))
	t.Setenv("HARMONYQC_OUTPUT", "json")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	t.Setenv("HARMONYQC_OUTPUT", "json")

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--output", "markdown", "--workers", "4"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadConfig_FlagPathsRelativeToCWD(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--state", "custom/state.db", "--vocab", "vars.tsv"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom", "state.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(dir, "vars.tsv"), cfg.Vocabulary)
}

func TestLoadConfig_InMemoryStatePassesThrough(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Chdir(t.TempDir())

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--state", ":memory:"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.StatePath)
}

func TestLoadConfig_ExplicitConfigFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("sources_dir: data\n"), 0o644))
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	// Paths resolve against the config file's directory.
	assert.Equal(t, filepath.Join(dir, "data"), cfg.SourcesDir)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "harmonyqc.yaml"), []byte("top_excluded: 0\n"), 0o644))
	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_excluded")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, Validate(cfg))

	bad := DefaultConfig()
	bad.Workers = -1
	assert.Error(t, Validate(bad))

	bad = DefaultConfig()
	bad.OutputFormat = "yaml"
	assert.Error(t, Validate(bad))

	bad = DefaultConfig()
	bad.SourcesDir = ""
	assert.Error(t, Validate(bad))
}
