package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/logging"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
	"github.com/Aman-CERP/amanscout/internal/ui"
)

// researchOptions holds CLI flags for research.
type researchOptions struct {
	count      int
	multiplier int
	budget     int
	jsonOutput bool
	plain      bool
	offline    bool
	noHistory  bool
}

func newResearchCmd() *cobra.Command {
	var opts researchOptions

	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Find, scrape and condense web sources for a question",
		Long: `Run the full research pipeline for a query.

Searches the web, ranks the candidates, scrapes them until enough pages pass
the quality gate, then keeps the passages most relevant to the query within
the character budget.

Progress is written to stderr; results go to stdout.`,
		Example: `  amanscout research "how do go channels work"
  amanscout research "rust async runtimes" --count 3 --budget 8000
  amanscout research "kubernetes operators" --json > sources.json
  amanscout research "sqlite wal mode" --offline`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runResearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Number of sources wanted (default from config)")
	cmd.Flags().IntVarP(&opts.multiplier, "multiplier", "m", 0, "Candidates fetched per wanted source (0 walks 4, 5, 10)")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "Total characters of content to return (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain progress lines instead of the interactive display")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip the language model and use static embeddings")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record this run")

	return cmd
}

func runResearch(ctx context.Context, cmd *cobra.Command, query string, opts researchOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	cleanup := setupCommandLogging(logCfg)
	defer cleanup()

	slog.Info("research_started",
		slog.String("query", query),
		slog.Int("count", opts.count),
		slog.Bool("offline", opts.offline))

	renderer := ui.NewRenderer(ui.NewConfig(cmd.ErrOrStderr(),
		ui.WithForcePlain(opts.plain),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithQuery(query),
	))

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(slog.Default()),
		pipeline.WithOffline(opts.offline),
		pipeline.WithProgress(renderer.Update),
	}
	if cfg.History.Enabled && !opts.noHistory {
		store, err := history.Open(historyPath(cfg))
		if err != nil {
			slog.Warn("history unavailable", slog.String("error", err.Error()))
		} else {
			defer func() { _ = store.Close() }()
			pipeOpts = append(pipeOpts, pipeline.WithRecorder(store))
		}
	}

	pc, err := newPipeline(cfg, pipeOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = pc.Close() }()

	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}

	req := pc.WithDefaults(pipeline.Request{
		Query:      query,
		Required:   opts.count,
		Multiplier: opts.multiplier,
		Budget:     opts.budget,
	})
	resp, err := pc.Run(ctx, req)
	if err != nil {
		_ = renderer.Stop()
		slog.Error("research_failed", slog.String("error", err.Error()))
		return err
	}

	renderer.Complete(ui.Summary{
		Query:         query,
		EnhancedQuery: resp.EnhancedQuery,
		Stats:         resp.Stats,
	})
	_ = renderer.Stop()

	out := newOutput(cmd)
	if opts.jsonOutput {
		return out.ResearchJSON(query, resp)
	}
	out.Research(query, resp)
	return nil
}
