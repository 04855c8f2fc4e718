package rank

import (
	"encoding/json"
	"fmt"
	"strings"

	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/search"
)

// ErrMalformedResponse matches any model response that could not be decoded.
var ErrMalformedResponse = scerrors.Sentinel(scerrors.ErrCodeMalformedResponse)

const systemPrompt = `You rank web search results and write enhanced search queries for vector similarity matching. You know which sites need a browser to render and which serve plain HTML.`

const rankingPromptTemplate = `Original query: %q

TASK 1 - RANK: Score ALL %d search results below for relevance to the query (0-100).
For each result pick the best fetch strategy:
- static: simple HTML sites, blogs, news articles, documentation
- specialized: content-heavy sites with complex layout but little JavaScript (shops, modern news)
- dynamic: JavaScript-heavy sites, single page apps, social media

TASK 2 - ENHANCE: Rewrite the query for semantic matching. Add synonyms, domain
terminology and context words that high-quality content on the topic would use.
The enhanced query must be longer than the original.

Respond with JSON only:
{
  "enhanced_query": "...",
  "url_rankings": [
    {"id": 0, "relevance_score": 95, "strategy": "static", "reason": "..."}
  ]
}

Include every id from 0 to %d.

Search results:
%s`

// buildPrompt renders the combined ranking and enhancement prompt.
func buildPrompt(query string, results []search.Result) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "ID: %d\nTitle: %s\nURL: %s\nSnippet: %s\n---\n", i, r.Title, r.URL, r.Snippet)
	}
	return systemPrompt + "\n\n" + fmt.Sprintf(rankingPromptTemplate, query, len(results), len(results)-1, sb.String())
}

type rankingResponse struct {
	EnhancedQuery string         `json:"enhanced_query"`
	Rankings      []rankingEntry `json:"url_rankings"`
}

type rankingEntry struct {
	ID             int     `json:"id"`
	RelevanceScore float64 `json:"relevance_score"`
	Strategy       string  `json:"strategy"`
	Method         string  `json:"method"`
	Reason         string  `json:"reason"`
}

// parseResponse decodes the JSON object spanning the first '{' to the last '}'.
func parseResponse(raw string) (*rankingResponse, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, scerrors.New(scerrors.ErrCodeMalformedResponse, "no JSON object in model response", nil)
	}

	var resp rankingResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return nil, scerrors.New(scerrors.ErrCodeMalformedResponse, "decode model response", err)
	}
	return &resp, nil
}

// strategy resolves the entry's strategy, accepting the legacy "method" key.
// Unknown names fall back to static.
func (e rankingEntry) strategy() Strategy {
	name := e.Strategy
	if name == "" {
		name = e.Method
	}
	if st, err := ParseStrategy(name); err == nil {
		return st
	}
	return StrategyStatic
}
