package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

// PlainRenderer outputs one line per stage event (for CI and pipes).
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error {
	return nil
}

// Update implements Renderer.
func (r *PlainRenderer) Update(e pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !e.Done {
		_, _ = fmt.Fprintf(r.out, "[%s] started\n", Icon(e.Stage))
		return
	}
	_, _ = fmt.Fprintf(r.out, "[%s] %d %s in %s\n", Icon(e.Stage), e.Count, unit(e.Stage), formatDuration(e.Elapsed))
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := s.Stats
	_, _ = fmt.Fprintf(r.out, "Complete: %d sources, %d chars in %s (ranking: %s)\n",
		st.Optimized, st.CharsUsed, formatDuration(st.Total), rankingLabel(st))
	if s.EnhancedQuery != "" && s.EnhancedQuery != s.Query {
		_, _ = fmt.Fprintf(r.out, "Enhanced query: %s\n", s.EnhancedQuery)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

func rankingLabel(st pipeline.Stats) string {
	if st.RankingPath == "" {
		return "skipped"
	}
	return string(st.RankingPath)
}

var _ Renderer = (*PlainRenderer)(nil)
