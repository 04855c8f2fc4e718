package lifecycle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPullPrinter_ThrottlesToSteps(t *testing.T) {
	// Given: a stream of progress updates
	var sb strings.Builder
	p := NewPullPrinter(&sb, 20)

	// When: feeding status changes and small percentage moves
	p.Update(PullProgress{Model: "m", Status: "pulling manifest"})
	p.Update(PullProgress{Model: "m", Status: "pulling manifest"})
	p.Update(PullProgress{Model: "m", Status: "downloading", Total: 100, Completed: 1, Percent: 1})
	p.Update(PullProgress{Model: "m", Status: "downloading", Total: 100, Completed: 5, Percent: 5})
	p.Update(PullProgress{Model: "m", Status: "downloading", Total: 100, Completed: 12, Percent: 12})
	p.Update(PullProgress{Model: "m", Status: "success"})

	// Then: one line per status change or 10% step
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "  m: pulling manifest", lines[0])
	assert.Contains(t, lines[1], "1%")
	assert.Contains(t, lines[2], "12%")
	assert.Equal(t, "  m: success", lines[3])
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "274.0 MiB", FormatBytes(274*1024*1024))
}
