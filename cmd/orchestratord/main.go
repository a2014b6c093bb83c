// Command orchestratord wires the orchestrator facade into a minimal
// long-running process: load config, start the scheduler, serve
// Prometheus metrics, and wait for a shutdown signal. It is explicitly
// not a front end — no JSON-RPC transport, no workflow-file parser, no
// provider connections are created here; those are external
// collaborators per the engine's scope. It exists only as the wiring
// point every teacher-shaped repo carries under cmd/.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailored-agentic-units/orchestrator/orchestrator"
)

func main() {
	var (
		configFile        = flag.String("config", "", "Path to orchestrator config JSON file (required)")
		deadLetterTimeout = flag.Duration("dead-letter-timeout", 0, "Dead-letter timeout for unassignable tasks (overrides config)")
		metricsAddr       = flag.String("metrics-addr", ":9090", "Address to serve /metrics on")
		verbose           = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: orchestratord -config <file>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := orchestrator.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *deadLetterTimeout > 0 {
		cfg.Coordinator.DeadLetterTimeout = *deadLetterTimeout
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	orch, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("failed to create orchestrator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer orch.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: *metricsAddr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server exited", "error", err)
		}
	}()

	slog.Info("orchestratord running", "metrics_addr", *metricsAddr)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown error", "error", err)
	}
}
