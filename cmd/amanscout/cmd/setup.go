package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanscout/internal/config"
	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/lifecycle"
)

func newSetupCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Pull the Ollama models used for ranking and embeddings",
		Long: `Check that Ollama is reachable and pull any missing models named in
the configuration: ranker.model when ranker.provider is ollama, and
optimizer.model when optimizer.embedder is ollama.

Without these models amanscout still works, falling back to heuristic
ranking and static embeddings.`,
		Example: `  amanscout setup
  amanscout setup --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runSetup(ctx, cmd, cfg, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report which models are missing")

	return cmd
}

// ollamaModels groups the configured Ollama models by host.
func ollamaModels(cfg *config.Config) map[string][]string {
	byHost := map[string][]string{}
	if strings.EqualFold(cfg.Ranker.Provider, "ollama") && cfg.Ranker.Model != "" {
		byHost[cfg.Ranker.Host] = append(byHost[cfg.Ranker.Host], cfg.Ranker.Model)
	}
	if strings.EqualFold(cfg.Optimizer.Embedder, "ollama") && cfg.Optimizer.Model != "" {
		byHost[cfg.Optimizer.Host] = append(byHost[cfg.Optimizer.Host], cfg.Optimizer.Model)
	}
	return byHost
}

func runSetup(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dryRun bool) error {
	out := newOutput(cmd)

	byHost := ollamaModels(cfg)
	if len(byHost) == 0 {
		out.Success("No Ollama models configured, nothing to do")
		return nil
	}

	for host, models := range byHost {
		m := lifecycle.NewManager(host)
		if !m.IsRunning(ctx) {
			return scerrors.Newf(scerrors.ErrCodeNetworkUnavailable, "ollama is not reachable at %s", m.Host()).
				WithSuggestion(lifecycle.InstallInstructions())
		}

		states, err := m.Status(ctx, models...)
		if err != nil {
			return err
		}

		printer := lifecycle.NewPullPrinter(cmd.OutOrStdout(), 24)
		for _, st := range states {
			if st.Present {
				out.Successf("%s is installed", st.Name)
				continue
			}
			if dryRun {
				out.Warningf("%s is missing", st.Name)
				out.Detail("run without --dry-run to pull it")
				continue
			}
			out.Statusf("↓", "Pulling %s from %s", st.Name, m.Host())
			if err := m.PullModel(ctx, st.Name, printer.Update); err != nil {
				return err
			}
			out.Successf("%s ready", st.Name)
		}
	}
	return nil
}
