package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrapable(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/article", true},
		{"http://example.com/", true},
		{"HTTPS://EXAMPLE.COM/A", true},
		{"https://example.com/paper.PDF", false},
		{"https://example.com/slides.pptx?dl=1", false},
		{"https://example.com/image.png", false},
		{"https://www.youtube.com/watch?v=abc", false},
		{"https://www.tiktok.com/@user", false},
		{"https://instagram.com/p/xyz", false},
		{"ftp://example.com/file", false},
		{"mailto:a@b.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Scrapable(tt.url))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\tb   c "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestFilterDedup_SharedSeenSet(t *testing.T) {
	// Given: a seen set carried over from an earlier pass
	seen := map[string]struct{}{"https://a.com/": {}}

	// When: filtering a batch containing the seen URL
	got := filterDedup([]Result{
		{URL: "https://a.com/"},
		{URL: "https://b.com/", Source: "other"},
	}, seen, "ddg")

	// Then: only the new URL is kept and the set grows
	assert.Len(t, got, 1)
	assert.Equal(t, "https://b.com/", got[0].URL)
	assert.Equal(t, "other", got[0].Source)
	assert.Contains(t, seen, "https://b.com/")
}
