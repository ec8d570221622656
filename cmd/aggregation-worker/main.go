package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tonelearn/internal/config"
	"tonelearn/internal/database"
	"tonelearn/internal/engine"
	"tonelearn/internal/jobs"
)

// The worker consumes aggregation requests published by ingestion and
// recomputes the requested profile. Several workers share one queue group.
func main() {
	timeout := flag.Duration("timeout", 0, "Per-request recompute timeout (default 10m)")
	flag.Parse()

	cfg := config.Load()
	logger := cfg.SetupLogger().With().Str("role", "aggregation-worker").Logger()

	if err := cfg.ValidateAggregationWorker(); err != nil {
		logger.Fatal().Err(err).Msg("Refusing to start aggregation worker")
	}

	// The worker always talks to NATS, whatever the server is configured for
	cfg.AggregationMode = "nats"

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Build(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build engine")
	}
	defer eng.Close()

	worker := jobs.NewWorker(eng.Analyzer, *timeout, logger)
	if err := worker.Start(ctx, eng.Bus); err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe")
	}

	logger.Info().
		Str("subject", jobs.SubjectAggregationRequested).
		Str("queue", jobs.WorkerQueue).
		Msg("Aggregation worker started")

	<-ctx.Done()
	logger.Info().Msg("Aggregation worker stopping")
}
