package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestAssess_EmptyContentFails(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t"} {
		a := Assess(content, "https://en.wikipedia.org/wiki/Go", "Go")
		assert.Equal(t, 0, a.Score)
		assert.Equal(t, TierFailed, a.Tier)
		assert.False(t, a.Tier.Acceptable())
	}
}

func TestAssess_TrustedDomainBoundary(t *testing.T) {
	// Given: exactly 500 words from a trusted domain
	a := Assess(words(500), "https://github.com/golang/go", "")

	// Then: 40 + 30 = 70 and EXCELLENT
	assert.Equal(t, 70, a.Score)
	assert.GreaterOrEqual(t, a.Score, 70)
	assert.Equal(t, TierExcellent, a.Tier)
	assert.Equal(t, 500, a.WordCount)
}

func TestAssess_UntrustedShortContentIsPoor(t *testing.T) {
	// Given: 40 words from an unknown TLD
	a := Assess(words(40), "https://example.net/page", "")

	// Then: below 25 and POOR, which is not acceptable
	assert.Less(t, a.Score, 25)
	assert.Equal(t, TierPoor, a.Tier)
	assert.False(t, a.Tier.Acceptable())
}

func TestAssess_Buckets(t *testing.T) {
	tests := []struct {
		name  string
		words int
		url   string
		score int
		tier  Tier
	}{
		{"49 words com", 49, "https://shop.com/x", 10, TierPoor},
		{"50 words com", 50, "https://shop.com/x", 20, TierPoor},
		{"100 words com", 100, "https://shop.com/x", 30, TierAcceptable},
		{"200 words org", 200, "https://python.org/doc", 45, TierGood},
		{"100 words edu", 100, "https://cs.mit.edu/a", 35, TierAcceptable},
		{"499 words net", 499, "https://blog.net/a", 30, TierAcceptable},
		{"500 words wiki", 500, "https://en.wikipedia.org/wiki/X", 70, TierExcellent},
		{"200 words stackoverflow", 200, "https://stackoverflow.com/q/1", 60, TierExcellent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(words(tt.words), tt.url, "")
			assert.Equal(t, tt.score, a.Score)
			assert.Equal(t, tt.tier, a.Tier)
		})
	}
}

func TestAssess_HostIsCaseInsensitive(t *testing.T) {
	a := Assess(words(10), "https://EN.WIKIPEDIA.ORG/wiki/X", "")
	assert.Equal(t, 30, a.Score)
}

func TestTier_StringAndAcceptable(t *testing.T) {
	assert.Equal(t, "ACCEPTABLE", TierAcceptable.String())
	assert.True(t, TierAcceptable.Acceptable())
	assert.True(t, TierGood.Acceptable())
	assert.True(t, TierExcellent.Acceptable())
	assert.False(t, TierPoor.Acceptable())

	text, err := TierGood.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "GOOD", string(text))
}
