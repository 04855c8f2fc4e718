package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanscout/internal/config"
	"github.com/Aman-CERP/amanscout/internal/output"
	"github.com/Aman-CERP/amanscout/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run system diagnostics to ensure amanscout can operate correctly.

Required checks:
  - Disk space for the data directory
  - Write permissions
  - File descriptor limits

Optional checks (warnings only, each has a fallback):
  - Language model reachable (otherwise heuristic ranking)
  - Embedder reachable (otherwise static embeddings)
  - Local Chromium for the dynamic strategy
  - Worker parallelism against CPU count`,
		Example: `  amanscout doctor
  amanscout doctor --verbose
  amanscout doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput, offline)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the language model and embedder probes")

	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput, offline bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checker := preflight.New(cfg,
		preflight.WithOffline(offline),
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := doctorChecks(ctx, checker)

	if jsonOutput {
		if err := outputDoctorJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)

		dataDir := config.DataDir()
		if !preflight.NeedsCheck(dataDir) {
			if age := preflight.MarkerAge(dataDir); age > 0 {
				cmd.Printf("\nLast successful check: %s ago\n", formatAge(age))
			}
		}
	}

	if checker.HasCriticalFailures(results) {
		return &doctorError{message: "system check failed"}
	}
	return nil
}

// doctorChecks runs the checks. Tests swap it to avoid probing the machine.
var doctorChecks = func(ctx context.Context, c *preflight.Checker) []preflight.CheckResult {
	return c.RunAll(ctx)
}

// doctorError is returned when a required check fails.
type doctorError struct {
	message string
}

func (e *doctorError) Error() string {
	return e.message
}

// DoctorJSON is the machine-readable doctor report.
type DoctorJSON struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func outputDoctorJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	report := DoctorJSON{
		Status: checker.SummaryStatus(results),
		Checks: results,
	}
	for _, r := range results {
		switch {
		case r.IsCritical():
			report.Errors = append(report.Errors, r.Name+": "+r.Message)
		case r.Status == preflight.StatusWarn:
			report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
		}
	}
	return output.New(cmd.OutOrStdout()).JSON(report)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return "less than 1 hour"
	case d < 2*time.Hour:
		return "1 hour"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	case d < 48*time.Hour:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
}
