package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

func TestFormatResearch_Basic(t *testing.T) {
	// When: formatting a response with one source
	markdown := FormatResearch("go generics", sampleResponse())

	// Then: header, source and content are present
	assert.Contains(t, markdown, `## Research Results for "go generics"`)
	assert.Contains(t, markdown, "Found 1 source (50 chars, ranking: llm)")
	assert.Contains(t, markdown, "### 1. Tutorial: Getting started with generics (quality: 92)")
	assert.Contains(t, markdown, "**Strategy:** static-vector-optimized")
	assert.Contains(t, markdown, "Type parameters let functions work on many types.")
}

func TestFormatResearch_NoSources(t *testing.T) {
	markdown := FormatResearch("nothing", pipeline.Response{})

	assert.Equal(t, `No sources found for "nothing"`, markdown)
}

func TestFormatResearch_UntitledSourceUsesURL(t *testing.T) {
	resp := sampleResponse()
	resp.Sources[0].Title = ""
	resp.EnhancedQuery = "go generics"

	markdown := FormatResearch("go generics", resp)

	assert.Contains(t, markdown, "### 1. https://go.dev/doc/tutorial/generics")
	assert.NotContains(t, markdown, "Enhanced query")
}

func TestFormatHistory(t *testing.T) {
	// Given: one run with a pipe in its query
	runs := []history.Run{{
		Query:      "a|b",
		Required:   5,
		Accepted:   3,
		CharsUsed:  1200,
		DurationMS: 2500,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	// When: formatting
	table := FormatHistory(runs)

	// Then: the row is escaped and the empty ranking path reads skipped
	assert.Contains(t, table, `| 2026-01-02T03:04:05Z | a\|b | 3/5 | 1200 | skipped | 2.5s |`)
	assert.Equal(t, "No research runs recorded yet.", FormatHistory(nil))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name                              string
		limit, defaultVal, min, max, want int
	}{
		{"zero uses default", 0, 20, 1, 100, 20},
		{"negative uses default", -5, 20, 1, 100, 20},
		{"within range", 50, 20, 1, 100, 50},
		{"above max", 500, 20, 1, 100, 100},
		{"below min", 1, 20, 5, 100, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampLimit(tt.limit, tt.defaultVal, tt.min, tt.max))
		})
	}
}
