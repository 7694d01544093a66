// Package output provides rendering helpers for CLI commands. The output
// mode adapts to the environment: styled text on a terminal, Markdown when
// piped, with explicit overrides for json and tsv.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode is the requested output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeTSV      Mode = "tsv"
)

// Styles for text mode.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out  io.Writer
	errW io.Writer
	mode Mode
}

// NewRenderer creates a renderer. An empty or unknown mode behaves as auto.
func NewRenderer(out, errW io.Writer, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON, ModeTSV:
	default:
		mode = ModeAuto
	}
	return &Renderer{out: out, errW: errW, mode: mode}
}

// Out returns the renderer's output writer.
func (r *Renderer) Out() io.Writer { return r.out }

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if isTerminal(r.out) {
		return ModeText
	}
	return ModeMarkdown
}

// isTerminal reports whether w is a terminal with color support.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return termenv.NewOutput(f).Profile != termenv.Ascii
}

// styled reports whether text-mode styling should be applied.
func (r *Renderer) styled() bool {
	return r.EffectiveMode() == ModeText && isTerminal(r.out)
}

// Println writes a line to the output writer.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Printf writes formatted output to the output writer.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section header, styled in text mode and as a Markdown
// heading otherwise.
func (r *Renderer) Header(level int, text string) {
	if r.styled() {
		_, _ = fmt.Fprintln(r.out, headerStyle.Render(text))
		return
	}
	_, _ = fmt.Fprintln(r.out, FormatHeader(level, text))
}

// Success writes a confirmation line.
func (r *Renderer) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.styled() {
		msg = successStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(r.out, msg)
}

// Warning writes a warning line to the error writer.
func (r *Renderer) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.styled() {
		msg = warnStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(r.errW, msg)
}

// Error writes an error line to the error writer.
func (r *Renderer) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.styled() {
		msg = errorStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(r.errW, msg)
}

// Dim writes a de-emphasized line.
func (r *Renderer) Dim(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.styled() {
		msg = dimStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(r.out, msg)
}

// FormatHeader renders a Markdown heading at the given level.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	prefix := ""
	for i := 0; i < level; i++ {
		prefix += "#"
	}
	return prefix + " " + text
}

// FormatKeyValue renders a "- **Key**: value" Markdown list item.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}
