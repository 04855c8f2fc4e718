package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/output"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent research runs",
		Long: `List recent research runs, newest first.

Only run metadata is stored: the query, how many sources were accepted,
characters used, the ranking path and how long the run took.`,
		Example: `  amanscout history
  amanscout history --limit 50 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(historyPath(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(runs)
			}
			out.History(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
