// Package quality scores extracted page text by length and source domain.
package quality

import (
	"net/url"
	"strings"
)

// Tier is a coarse ordinal classification of extracted content.
type Tier int

const (
	TierFailed Tier = iota
	TierPoor
	TierAcceptable
	TierGood
	TierExcellent
)

// String returns the upper-case tier name.
func (t Tier) String() string {
	switch t {
	case TierFailed:
		return "FAILED"
	case TierPoor:
		return "POOR"
	case TierAcceptable:
		return "ACCEPTABLE"
	case TierGood:
		return "GOOD"
	case TierExcellent:
		return "EXCELLENT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the tier name in JSON output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Acceptable reports whether content of this tier may be kept.
// POOR pages still get a score but are never accepted.
func (t Tier) Acceptable() bool {
	return t >= TierAcceptable
}

// Assessment is the result of scoring one page.
type Assessment struct {
	Score     int
	Tier      Tier
	WordCount int
}

// trustedDomains earn the full domain bonus.
var trustedDomains = []string{"wikipedia.org", "github.com", "stackoverflow.com"}

const (
	trustedBonus = 30
	orgEduBonus  = 15
	comBonus     = 10
)

// Assess scores content from rawURL. title is accepted for parity with the
// extraction contract but does not affect the score.
func Assess(content, rawURL, title string) Assessment {
	_ = title

	words := strings.Fields(content)
	if len(words) == 0 {
		return Assessment{Score: 0, Tier: TierFailed}
	}

	score := lengthScore(len(words)) + domainScore(rawURL)

	return Assessment{
		Score:     score,
		Tier:      tierFor(score),
		WordCount: len(words),
	}
}

func lengthScore(words int) int {
	switch {
	case words >= 500:
		return 40
	case words >= 200:
		return 30
	case words >= 100:
		return 20
	case words >= 50:
		return 10
	default:
		return 0
	}
}

func domainScore(rawURL string) int {
	host := hostOf(rawURL)
	for _, d := range trustedDomains {
		if strings.Contains(host, d) {
			return trustedBonus
		}
	}
	if strings.Contains(host, ".edu") || strings.Contains(host, ".org") {
		return orgEduBonus
	}
	if strings.Contains(host, ".com") {
		return comBonus
	}
	return 0
}

func tierFor(score int) Tier {
	switch {
	case score >= 60:
		return TierExcellent
	case score >= 40:
		return TierGood
	case score >= 25:
		return TierAcceptable
	default:
		return TierPoor
	}
}

// hostOf returns the lower-cased host, or the lower-cased input if it does not parse.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Host)
}
