package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

// ResearchJSON is the machine-readable shape of a research run.
type ResearchJSON struct {
	Query         string            `json:"query"`
	EnhancedQuery string            `json:"enhanced_query"`
	Sources       any               `json:"sources"`
	Stats         ResearchStatsJSON `json:"stats"`
}

// ResearchStatsJSON reports durations in milliseconds.
type ResearchStatsJSON struct {
	Candidates  int              `json:"candidates"`
	Accepted    int              `json:"accepted"`
	Optimized   int              `json:"optimized"`
	CharsUsed   int              `json:"chars_used"`
	RankingPath string           `json:"ranking_path"`
	DurationsMS map[string]int64 `json:"durations_ms"`
	TotalMS     int64            `json:"total_ms"`
}

// Research prints the optimized sources as readable text.
func (w *Writer) Research(query string, resp pipeline.Response) {
	if len(resp.Sources) == 0 {
		w.Warningf("No sources found for %q", query)
		return
	}

	for i, src := range resp.Sources {
		title := src.Title
		if title == "" {
			title = src.URL
		}
		_, _ = fmt.Fprintf(w.out, "[%d] %s\n", i+1, title)
		_, _ = fmt.Fprintf(w.out, "    %s\n", src.URL)
		_, _ = fmt.Fprintf(w.out, "    quality %d | %d words | %s\n", src.QualityScore, src.WordCount, src.StrategyChain)
		w.content(src.Content)
	}
}

// content prints page text indented between blank lines.
func (w *Writer) content(text string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(text, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// ResearchJSON writes the response as indented JSON.
func (w *Writer) ResearchJSON(query string, resp pipeline.Response) error {
	durations := make(map[string]int64, len(resp.Stats.Durations))
	for stage, d := range resp.Stats.Durations {
		durations[string(stage)] = d.Milliseconds()
	}
	return w.JSON(ResearchJSON{
		Query:         query,
		EnhancedQuery: resp.EnhancedQuery,
		Sources:       resp.Sources,
		Stats: ResearchStatsJSON{
			Candidates:  resp.Stats.Candidates,
			Accepted:    resp.Stats.Accepted,
			Optimized:   resp.Stats.Optimized,
			CharsUsed:   resp.Stats.CharsUsed,
			RankingPath: string(resp.Stats.RankingPath),
			DurationsMS: durations,
			TotalMS:     resp.Stats.Total.Milliseconds(),
		},
	})
}

// JSON writes v as indented JSON followed by a newline.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// History prints recorded runs as an aligned table.
func (w *Writer) History(runs []history.Run) {
	if len(runs) == 0 {
		w.Status("", "No research runs recorded yet.")
		return
	}

	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "WHEN\tQUERY\tACCEPTED\tCHARS\tRANKING\tTOOK")
	for _, r := range runs {
		ranking := r.RankingPath
		if ranking == "" {
			ranking = "skipped"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Query, 48),
			r.Accepted, r.Required,
			r.CharsUsed,
			ranking,
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
		)
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

