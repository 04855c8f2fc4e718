// Package cmd provides the CLI commands for amanscout.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanscout/internal/config"
	scerrors "github.com/Aman-CERP/amanscout/internal/errors"
	"github.com/Aman-CERP/amanscout/internal/logging"
	"github.com/Aman-CERP/amanscout/internal/output"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
	"github.com/Aman-CERP/amanscout/internal/profiling"
	"github.com/Aman-CERP/amanscout/internal/ui"
	"github.com/Aman-CERP/amanscout/pkg/version"
)

var (
	debugMode      bool
	configPath     string
	profileOpts    profiling.Options
	profileSession *profiling.Session
	loggingCleanup func()
)

// newPipeline builds the shared pipeline context. Tests swap it to inject fakes.
var newPipeline = pipeline.New

// NewRootCmd creates the root command for the amanscout CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amanscout",
		Short: "Research acquisition for AI assistants",
		Long: `amanscout turns a research question into a small set of relevant,
budget-trimmed web sources.

It searches the web, ranks candidates with a language model (or a keyword
heuristic when none is reachable), races several scraping strategies per URL,
filters pages through a quality gate and keeps only the passages most similar
to the query.

Run 'amanscout research "<question>"' from a terminal, or 'amanscout serve'
to expose the research tool to an MCP client.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: startProfilingAndLogging,
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return stopProfilingAndLogging()
	}

	cmd.SetVersionTemplate("amanscout version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.amanscout/logs/ and stderr")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Load configuration from this file instead of the user and project files")
	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newResearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

// printError shows structured errors with their hint and code, anything else as is.
func printError(w io.Writer, err error) {
	if scerrors.GetCode(err) != "" {
		_, _ = fmt.Fprint(w, scerrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// startProfilingAndLogging starts debug logging and any requested profiles.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = s
	}
	return nil
}

func stopProfilingAndLogging() error {
	var err error
	if profileSession != nil {
		err = profileSession.Stop()
		profileSession = nil
	}

	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// setupCommandLogging sends logs to the rotating file unless --debug already did.
// The returned cleanup is always safe to call.
func setupCommandLogging(cfg logging.Config) func() {
	if debugMode {
		return func() {}
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return func() {}
	}
	slog.SetDefault(logger)
	return cleanup
}

// loadConfig reads --config when given, otherwise the user and project files for
// the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return config.Load(cwd)
}

func historyPath(cfg *config.Config) string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	return config.DefaultHistoryPath()
}

// newOutput writes to the command's stdout, colored only on a terminal without NO_COLOR.
func newOutput(cmd *cobra.Command) *output.Writer {
	w := cmd.OutOrStdout()
	if ui.IsTTY(w) && !ui.DetectNoColor() {
		return output.New(w, output.WithColor())
	}
	return output.New(w)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
