// Package ui renders research progress in the terminal.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

// Label returns the display name of a pipeline stage.
func Label(s pipeline.Stage) string {
	switch s {
	case pipeline.StageSearch:
		return "Search"
	case pipeline.StageRank:
		return "Rank"
	case pipeline.StageScrape:
		return "Scrape"
	case pipeline.StageOptimize:
		return "Optimize"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func Icon(s pipeline.Stage) string {
	switch s {
	case pipeline.StageSearch:
		return "SEARCH"
	case pipeline.StageRank:
		return "RANK"
	case pipeline.StageScrape:
		return "SCRAPE"
	case pipeline.StageOptimize:
		return "OPTIMIZE"
	default:
		return "???"
	}
}

// unit describes what a stage's count measures.
func unit(s pipeline.Stage) string {
	switch s {
	case pipeline.StageSearch:
		return "candidates"
	case pipeline.StageRank:
		return "ranked"
	case pipeline.StageScrape:
		return "accepted"
	default:
		return "sources"
	}
}

// Summary is shown when a run completes.
type Summary struct {
	Query         string
	EnhancedQuery string
	Stats         pipeline.Stats
}

// Renderer displays pipeline progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Update reports a stage event.
	Update(event pipeline.Event)

	// Complete marks rendering as complete with summary.
	Complete(summary Summary)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Query      string
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithQuery sets the query shown in the header.
func WithQuery(q string) ConfigOption {
	return func(c *Config) {
		c.Query = q
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// text renderer for CI, pipes, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
