package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aegisflux/sshbreakin/internal/api"
	"github.com/aegisflux/sshbreakin/internal/config"
	"github.com/aegisflux/sshbreakin/internal/metrics"
	"github.com/aegisflux/sshbreakin/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", getEnv("CONFIG_FILE", ""), "path to an optional YAML run config")
	input := flag.String("file", "", "path to the gzip-compressed input log (overrides config)")
	attempts := flag.Int("attempts", 0, "failures required to trigger a Suspect (0 = use config/default)")
	seconds := flag.Float64("seconds", 0, "SuspectFinder window in seconds (0 = use config/default); the Correlator's match window is fixed at 60s")
	parallelism := flag.Int("parallelism", 0, "parser fan-out width (0 = use config/default)")
	metricsAddr := flag.String("metrics-addr", "", "admin HTTP listen address for /metrics and /healthz")
	flag.Parse()

	logger.Info("starting ssh break-in correlator pipeline")

	// CLI flags sit at the same precedence as environment variables
	// (above the YAML file, below nothing): fold any flag the caller
	// actually passed into the corresponding env var before Load, so
	// schema validation sees the final resolved value.
	visited := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { visited[f.Name] = true })
	if visited["file"] {
		os.Setenv("SSHBREAKIN_INPUT", *input)
	}
	if visited["attempts"] {
		os.Setenv("SSHBREAKIN_ATTEMPTS", fmt.Sprintf("%d", *attempts))
	}
	if visited["seconds"] {
		os.Setenv("SSHBREAKIN_SECONDS", fmt.Sprintf("%g", *seconds))
	}
	if visited["parallelism"] {
		os.Setenv("SSHBREAKIN_PARALLELISM", fmt.Sprintf("%d", *parallelism))
	}
	if visited["metrics-addr"] {
		os.Setenv("SSHBREAKIN_METRICS_ADDR", *metricsAddr)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"input", cfg.Input,
		"output_dir", cfg.OutputDir,
		"attempts", cfg.Attempts,
		"seconds", cfg.Seconds,
		"parallelism", cfg.Parallelism,
		"metrics_addr", cfg.MetricsAddr,
		"nats_url", cfg.NATSURL,
		"log_year", cfg.LogYear)

	prometheusMetrics := metrics.New()

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn("failed to connect to NATS, degrading to file-only output", "error", err)
			nc = nil
		} else {
			logger.Info("connected to NATS", "url", cfg.NATSURL)
			defer nc.Close()
		}
	}

	mux := http.NewServeMux()
	api.SetupRoutes(mux)
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		logger.Info("starting admin HTTP server", "addr", cfg.MetricsAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin HTTP server error", "error", err)
		}
	}()

	// The pipeline itself has no external cancellation surface (spec.md
	// §5): a SIGINT mid-run is the "interactive run killed mid-stream"
	// case of §4.1 — downstream stages simply stay quiescent forever
	// because the source channel never closes. main only uses the
	// signal to stop waiting and shut down the admin server promptly.
	runErr := make(chan error, 1)
	go func() {
		runErr <- pipeline.Run(cfg, nc, prometheusMetrics, logger)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var pipelineErr error
	select {
	case pipelineErr = <-runErr:
	case <-sigChan:
		logger.Warn("received shutdown signal before pipeline completed; exiting without a final Breakins.txt flush")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin HTTP server shutdown error", "error", err)
	}

	if pipelineErr != nil {
		logger.Error("pipeline terminated with error", "error", pipelineErr)
		os.Exit(1)
	}
	logger.Info("pipeline completed")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
