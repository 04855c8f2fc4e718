package rank

import (
	"fmt"
	"net/url"
	"strings"
)

// Strategy names a content-acquisition method.
type Strategy string

const (
	// StrategyStatic fetches raw HTML over HTTP.
	StrategyStatic Strategy = "static"
	// StrategyDynamic renders the page in a headless browser.
	StrategyDynamic Strategy = "dynamic"
	// StrategySpecialized uses the crawler-style extractor with retries and cleanup.
	StrategySpecialized Strategy = "specialized"
)

// Strategies lists every strategy in a stable order.
var Strategies = []Strategy{StrategyStatic, StrategyDynamic, StrategySpecialized}

var strategyAliases = map[string]Strategy{
	"static":        StrategyStatic,
	"beautifulsoup": StrategyStatic,
	"dynamic":       StrategyDynamic,
	"playwright":    StrategyDynamic,
	"specialized":   StrategySpecialized,
	"crawl4ai":      StrategySpecialized,
}

// ParseStrategy parses a strategy name or one of its legacy aliases, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	if st, ok := strategyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// String implements fmt.Stringer.
func (s Strategy) String() string { return string(s) }

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyStatic, StrategyDynamic, StrategySpecialized:
		return true
	}
	return false
}

var dynamicDomains = []string{
	"twitter.com", "x.com", "facebook.com", "instagram.com",
	"youtube.com", "tiktok.com", "linkedin.com", "discord.com",
}

var specializedDomains = []string{
	"amazon.com", "ebay.com", "cnn.com", "bbc.com",
	"medium.com", "reddit.com", "github.com", "stackoverflow.com",
}

// StrategyForURL picks a strategy from the host's domain.
func StrategyForURL(rawURL string) Strategy {
	host := hostOf(rawURL)
	if matchesDomain(host, dynamicDomains) {
		return StrategyDynamic
	}
	if matchesDomain(host, specializedDomains) {
		return StrategySpecialized
	}
	return StrategyStatic
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}

// matchesDomain matches the domain itself or any subdomain of it.
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
