package ui

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

func TestLabelAndIcon(t *testing.T) {
	tests := []struct {
		stage pipeline.Stage
		label string
		icon  string
	}{
		{pipeline.StageSearch, "Search", "SEARCH"},
		{pipeline.StageRank, "Rank", "RANK"},
		{pipeline.StageScrape, "Scrape", "SCRAPE"},
		{pipeline.StageOptimize, "Optimize", "OPTIMIZE"},
		{pipeline.Stage("bogus"), "Unknown", "???"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.label, Label(tt.stage))
			assert.Equal(t, tt.icon, Icon(tt.stage))
		})
	}
}

func TestIsTTY_WithBuffer_ReturnsFalse(t *testing.T) {
	// Given: a bytes.Buffer (not a TTY)
	buf := &bytes.Buffer{}

	// When: checking if it's a TTY
	result := IsTTY(buf)

	// Then: returns false
	assert.False(t, result)
}

func TestIsTTY_WithNil_ReturnsFalse(t *testing.T) {
	assert.False(t, IsTTY(nil))
}

func TestNewConfig_WithOptions(t *testing.T) {
	// Given: a buffer and options
	buf := &bytes.Buffer{}

	// When: creating config with options
	cfg := NewConfig(buf, WithForcePlain(true), WithNoColor(true), WithQuery("go generics"))

	// Then: options are applied
	assert.Equal(t, buf, cfg.Output)
	assert.True(t, cfg.ForcePlain)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "go generics", cfg.Query)
}

func TestNewRenderer_ForcePlain_ReturnsPlainRenderer(t *testing.T) {
	r := NewRenderer(NewConfig(os.Stdout, WithForcePlain(true)))

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestNewRenderer_NonTTY_ReturnsPlainRenderer(t *testing.T) {
	// Given: a non-TTY output
	buf := &bytes.Buffer{}

	// When: creating renderer
	r := NewRenderer(NewConfig(buf))

	// Then: returns PlainRenderer
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestDetectNoColor_WithEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDetectCI_WithEnv(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1520*time.Millisecond))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
}
