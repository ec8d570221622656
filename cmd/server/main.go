package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tonelearn/internal/config"
	"tonelearn/internal/database"
	"tonelearn/internal/engine"
	"tonelearn/internal/server"

	"github.com/jmoiron/sqlx"
)

// @title Tonelearn API
// @version 1.0
// @description Learns a user's writing tone from sent mail and serves style examples and writing profiles.
// @BasePath /
func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Initialize database connection
	var db *sqlx.DB
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, profiles are kept in memory")
	} else {
		conn, err := database.New(cfg.DatabaseURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Database connection failed")
			logger.Info().Msg("Starting server without database connection")
		} else {
			logger.Info().Msg("Database connection established successfully")
			db = conn
			defer func() { _ = db.Close() }()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Build(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build engine")
	}
	defer eng.Close()

	// Create and initialize server
	srv := server.New(eng, logger)
	srv.Initialize()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown error")
	}
	logger.Info().Msg("Server stopped")
}
