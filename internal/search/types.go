// Package search fans a query out to a search provider and returns a filtered,
// deduplicated candidate list.
package search

import "context"

// Result is one search hit. URL is the deduplication key.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Provider executes a query against a search backend.
// Implementations may return fewer than maxResults and may fail transiently.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, query string, maxResults int) ([]Result, error)

// Name implements Provider.
func (f ProviderFunc) Name() string { return "func" }

// Search implements Provider.
func (f ProviderFunc) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return f(ctx, query, maxResults)
}

// StaticProvider returns a fixed result list, truncated to maxResults.
// It backs offline runs and tests.
type StaticProvider struct {
	Results []Result
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "static" }

// Search implements Provider.
func (p *StaticProvider) Search(_ context.Context, _ string, maxResults int) ([]Result, error) {
	n := min(maxResults, len(p.Results))
	out := make([]Result, n)
	copy(out, p.Results[:n])
	return out, nil
}
