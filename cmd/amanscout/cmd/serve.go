package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanscout/internal/config"
	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/logging"
	"github.com/Aman-CERP/amanscout/internal/mcp"
	"github.com/Aman-CERP/amanscout/internal/metrics"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
	"github.com/Aman-CERP/amanscout/internal/preflight"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	transport   string
	metricsAddr string
	offline     bool
	skipCheck   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the research tool over MCP",
		Long: `Start an MCP server exposing the research and history tools.

stdout carries JSON-RPC only. Logs go to ~/.amanscout/logs/, and the
required system checks run silently once per version.

With --metrics-addr, Prometheus metrics are served at /metrics.`,
		Example: `  amanscout serve
  amanscout serve --metrics-addr 127.0.0.1:9464`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport to serve on (default from config: stdio)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip the language model and use static embeddings")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-check", false, "Skip the system checks")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Nothing may reach stdout before the server owns it.
	cleanup := setupCommandLogging(logging.ServerConfig(cfg.Server.LogLevel))
	defer cleanup()

	if !opts.skipCheck {
		if err := runStartupChecks(ctx, cfg, opts.offline); err != nil {
			return err
		}
	}

	m := metrics.New()
	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(slog.Default()),
		pipeline.WithMetrics(m),
		pipeline.WithOffline(opts.offline),
	}
	serverOpts := []mcp.Option{mcp.WithLogger(slog.Default())}

	if cfg.History.Enabled {
		store, err := history.Open(historyPath(cfg))
		if err != nil {
			slog.Warn("history unavailable", slog.String("error", err.Error()))
		} else {
			defer func() { _ = store.Close() }()
			pipeOpts = append(pipeOpts, pipeline.WithRecorder(store))
			serverOpts = append(serverOpts, mcp.WithHistory(store))
		}
	}

	pc, err := newPipeline(cfg, pipeOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = pc.Close() }()

	srv, err := mcp.NewServer(pc, serverOpts...)
	if err != nil {
		return err
	}

	addr := opts.metricsAddr
	if addr == "" {
		addr = cfg.Server.MetricsAddr
	}
	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
		}
		defer serveMetrics(ctx, ln, m.Handler())()
	}

	transport := opts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}
	return srv.Serve(ctx, transport)
}

// runStartupChecks runs the required checks once per version, logging instead of printing.
func runStartupChecks(ctx context.Context, cfg *config.Config, offline bool) error {
	dataDir := config.DataDir()
	if !preflight.NeedsCheck(dataDir) {
		return nil
	}

	checker := preflight.New(cfg,
		preflight.WithOffline(offline),
		preflight.WithOutput(io.Discard),
	)
	results := checker.RunAll(ctx)
	for _, r := range results {
		if r.Status != preflight.StatusPass {
			slog.Warn("system check",
				slog.String("check", r.Name),
				slog.String("status", r.Status.String()),
				slog.String("message", r.Message))
		}
	}

	if checker.HasCriticalFailures(results) {
		slog.Error("System check failed - run 'amanscout doctor' for diagnostics")
		return errors.New("system check failed")
	}
	if err := preflight.MarkPassed(dataDir); err != nil {
		slog.Debug("Failed to mark preflight as passed", slog.String("error", err.Error()))
	}
	return nil
}

// serveMetrics serves h at /metrics on ln until ctx ends or the returned stop
// function runs.
func serveMetrics(ctx context.Context, ln net.Listener, h http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	slog.Info("metrics listening", slog.String("addr", ln.Addr().String()))

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
