package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveMode(t *testing.T) {
	var buf bytes.Buffer

	// Auto falls back to markdown on a non-terminal writer.
	r := NewRenderer(&buf, &buf, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	// Explicit modes pass through.
	for _, mode := range []Mode{ModeText, ModeMarkdown, ModeJSON, ModeTSV} {
		r := NewRenderer(&buf, &buf, mode)
		assert.Equal(t, mode, r.EffectiveMode())
	}

	// Unknown mode behaves as auto.
	r = NewRenderer(&buf, &buf, Mode("yaml"))
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestHeaderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)
	r.Header(2, "Sources")
	assert.Equal(t, "## Sources\n", buf.String())
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "### Sub", FormatHeader(3, "Sub"))
	assert.Equal(t, "# Clamped", FormatHeader(0, "Clamped"))
	assert.Equal(t, "###### Deep", FormatHeader(9, "Deep"))
}

func TestFormatKeyValue(t *testing.T) {
	assert.Equal(t, "- **Rows**: 42", FormatKeyValue("Rows", "42"))
}

func TestWarningGoesToErrWriter(t *testing.T) {
	var out, errW bytes.Buffer
	r := NewRenderer(&out, &errW, ModeMarkdown)
	r.Warning("skipped %d sources", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "skipped 2 sources\n", errW.String())
}
