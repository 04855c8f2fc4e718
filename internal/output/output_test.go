package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"status with icon", func(w *Writer) { w.Status("↓", "Pulling qwen3:4b") }, "↓ Pulling qwen3:4b\n"},
		{"status without icon", func(w *Writer) { w.Status("", "indented") }, "  indented\n"},
		{"success", func(w *Writer) { w.Successf("%d sources ready", 3) }, "✓ 3 sources ready\n"},
		{"warning", func(w *Writer) { w.Warningf("%s is missing", "nomic-embed-text") }, "! nomic-embed-text is missing\n"},
		{"detail", func(w *Writer) { w.Detail("Location: /tmp/config.yaml") }, "  Location: /tmp/config.yaml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a plain writer
			buf := &bytes.Buffer{}
			w := New(buf)

			// When: writing the line
			tt.write(w)

			// Then: no styling is applied
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_WithColorKeepsText(t *testing.T) {
	// Given: a colored writer
	buf := &bytes.Buffer{}
	w := New(buf, WithColor())

	// When: printing a success line
	w.Success("config written")

	// Then: the icon and message are still present
	assert.Contains(t, buf.String(), "✓")
	assert.Contains(t, buf.String(), "config written\n")
}
