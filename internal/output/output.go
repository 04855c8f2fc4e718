// Package output formats CLI status lines, research results and run history.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
)

// Writer writes human-readable CLI output. Color is off unless WithColor is used,
// so piped output stays plain.
type Writer struct {
	out     io.Writer
	success lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
}

// Option configures a Writer.
type Option func(*Writer)

// WithColor styles icons and secondary text.
func WithColor() Option {
	return func(w *Writer) {
		w.success = lipgloss.NewStyle().Foreground(lipgloss.Color("154"))
		w.warning = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		w.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
}

// New creates a Writer on out.
func New(out io.Writer, opts ...Option) *Writer {
	w := &Writer{
		out:     out,
		success: lipgloss.NewStyle(),
		warning: lipgloss.NewStyle(),
		dim:     lipgloss.NewStyle(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Status prints msg after icon, or indented when icon is empty.
// Write errors are ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Statusf is Status with formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a completed step.
func (w *Writer) Success(msg string) {
	w.Status(w.success.Render(iconSuccess), msg)
}

// Successf is Success with formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a degraded or skipped step.
func (w *Writer) Warning(msg string) {
	w.Status(w.warning.Render(iconWarning), msg)
}

// Warningf is Warning with formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Detail prints a dimmed, indented line under the previous status.
func (w *Writer) Detail(msg string) {
	w.Status("", w.dim.Render(msg))
}
