package search

import (
	"net/url"
	"strings"
)

// skipExtensions are binary or document formats no strategy can extract text from.
var skipExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".rar", ".exe", ".dmg",
	".mp4", ".avi", ".mov",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico",
}

// skipPlatforms require a login or are interactive media pages.
var skipPlatforms = []string{
	"youtube.com/watch",
	"twitter.com/status",
	"instagram.com/p/",
	"facebook.com/photo",
	"pinterest.com/pin",
	"tiktok.com",
}

// NormalizeURL trims surrounding whitespace. Dedup compares the result byte for byte.
func NormalizeURL(raw string) string {
	return strings.TrimSpace(raw)
}

// Scrapable reports whether rawURL is an http(s) page worth fetching.
func Scrapable(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}

	path := lower
	if u, err := url.Parse(lower); err == nil {
		path = u.Path
	}
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	for _, p := range skipPlatforms {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// CleanText collapses runs of whitespace into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// filterDedup drops unscrapable URLs and keeps the first occurrence of each URL.
// seen is shared across calls so ladder passes extend an existing pool.
func filterDedup(in []Result, seen map[string]struct{}, source string) []Result {
	out := make([]Result, 0, len(in))
	for _, r := range in {
		u := NormalizeURL(r.URL)
		if u == "" || !Scrapable(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		r.URL = u
		r.Title = CleanText(r.Title)
		r.Snippet = CleanText(r.Snippet)
		if r.Source == "" {
			r.Source = source
		}
		out = append(out, r)
	}
	return out
}
