package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/optimize"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

// FormatResearch formats a research response as markdown for clients that
// only read text content.
func FormatResearch(query string, resp pipeline.Response) string {
	if len(resp.Sources) == 0 {
		return fmt.Sprintf("No sources found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Research Results for \"%s\"\n\n", query)
	if resp.EnhancedQuery != "" && resp.EnhancedQuery != query {
		fmt.Fprintf(&sb, "Enhanced query: `%s`\n\n", resp.EnhancedQuery)
	}
	fmt.Fprintf(&sb, "Found %d source", len(resp.Sources))
	if len(resp.Sources) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%d chars, ranking: %s)\n\n", resp.Stats.CharsUsed, rankingLabel(resp.Stats.RankingPath))

	for i, src := range resp.Sources {
		formatSource(&sb, i+1, src)
	}
	return sb.String()
}

func formatSource(sb *strings.Builder, num int, src optimize.Source) {
	title := src.Title
	if title == "" {
		title = src.URL
	}
	fmt.Fprintf(sb, "### %d. %s (quality: %d)\n", num, title, src.QualityScore)
	fmt.Fprintf(sb, "%s\n\n", src.URL)
	if src.StrategyChain != "" {
		fmt.Fprintf(sb, "**Strategy:** %s\n\n", src.StrategyChain)
	}
	sb.WriteString(src.Content)
	sb.WriteString("\n\n---\n\n")
}

// FormatHistory renders past runs as a markdown table.
func FormatHistory(runs []history.Run) string {
	if len(runs) == 0 {
		return "No research runs recorded yet."
	}

	var sb strings.Builder
	sb.WriteString("| When | Query | Accepted | Chars | Ranking | Took |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "| %s | %s | %d/%d | %d | %s | %s |\n",
			r.CreatedAt.Format(time.RFC3339),
			strings.ReplaceAll(r.Query, "|", "\\|"),
			r.Accepted, r.Required,
			r.CharsUsed,
			rankingLabel(r.RankingPath),
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
		)
	}
	return sb.String()
}

func rankingLabel[T ~string](path T) string {
	if path == "" {
		return "skipped"
	}
	return string(path)
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
