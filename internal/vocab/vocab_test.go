package vocab

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "var_name\tvar_label\n" +
		"bmi\tBMI\n" +
		"hdl\tHDL\n" +
		"creat_urin\tCreatinine in urine\n"

	v, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, v.Len())
	assert.True(t, v.IsPriority("bmi"))
	assert.False(t, v.IsPriority("OBA:VT0000188"))
	assert.Equal(t, "Creatinine in urine", v.Label("creat_urin"))
	assert.Equal(t, []string{"bmi", "creat_urin", "hdl"}, v.Codes())
}

func TestParse_ExtraColumns(t *testing.T) {
	input := "source\tvar_name\tunits\tvar_label\n" +
		"topmed\tbmi\tkg/m2\tBMI\n"

	v, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, v.IsPriority("bmi"))
	assert.Equal(t, "BMI", v.Label("bmi"))
}

func TestParse_MissingColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("code\tname\nbmi\tBMI\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "var_name")
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
}

func TestLabel_Fallback(t *testing.T) {
	v := New(map[string]string{"bmi": "BMI", "pr_ekg": ""})

	assert.Equal(t, "BMI", v.Label("bmi"))
	// Known code with no label falls back to the code.
	assert.Equal(t, "pr_ekg", v.Label("pr_ekg"))
	// Unknown code falls back to itself.
	assert.Equal(t, "OBA:VT0000188", v.Label("OBA:VT0000188"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harmonized_vars.tsv")
	content := "var_name\tvar_label\nbmi\tBMI\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Len())

	_, err = Load(filepath.Join(dir, "missing.tsv"))
	assert.Error(t, err)
}
