package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"tonelearn/internal/config"
	"tonelearn/internal/database"
	"tonelearn/internal/emails"
	"tonelearn/internal/engine"
	"tonelearn/internal/ingest"
	"tonelearn/internal/models"
)

func main() {
	// Parse command line flags
	userID := flag.String("user", "", "User the messages belong to")
	emlPath := flag.String("eml", "", "Path to EML file or directory containing EML files")
	mboxPath := flag.String("mbox", "", "Path to MBOX file")
	batchSize := flag.Int("batch", 200, "Messages per ingestion run when reading MBOX")
	flag.Parse()

	if *userID == "" || (*emlPath == "" && *mboxPath == "") {
		fmt.Println("Usage:")
		fmt.Println("  Import EML files:  import-emails -user u1 -eml /path/to/file.eml")
		fmt.Println("  Import directory:  import-emails -user u1 -eml /path/to/directory")
		fmt.Println("  Import MBOX:       import-emails -user u1 -mbox /path/to/file.mbox [-batch 200]")
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	logger := cfg.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		conn, err := database.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Database connection failed")
		}
		db = conn
		defer func() { _ = db.Close() }()
	}

	eng, err := engine.Build(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build engine")
	}
	defer eng.Close()

	imp := &importer{pipeline: eng.Pipeline, userID: *userID, logger: logger}

	if *emlPath != "" {
		err = imp.importEML(ctx, *emlPath)
	} else {
		err = imp.importMBOX(ctx, *mboxPath, *batchSize)
	}

	fmt.Println()
	fmt.Printf("  - Parsed:    %d messages\n", imp.parsed)
	fmt.Printf("  - Skipped:   %d messages\n", imp.skipped)
	fmt.Printf("  - Indexed:   %d examples\n", imp.processed-imp.errors)
	fmt.Printf("  - Errors:    %d examples\n", imp.errors)

	if err != nil {
		var rateErr *ingest.ErrorRateExceededError
		if errors.As(err, &rateErr) {
			logger.Error().Float64("error_rate", rateErr.Rate()).Msg("Import aborted")
		}
		logger.Fatal().Err(err).Msg("Import failed")
	}
	fmt.Println("\n✓ Email import complete!")
}

type importer struct {
	pipeline *ingest.Pipeline
	userID   string
	logger   zerolog.Logger

	parsed    int
	skipped   int
	processed int
	errors    int
}

func (i *importer) importEML(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to access path: %w", err)
	}

	var messages []*models.HistoricalMessage
	switch {
	case info.IsDir():
		fmt.Println("Scanning directory for EML files...")
		messages, err = emails.ParseDirectory(path, func(file string, err error) {
			i.skipped++
			i.logger.Warn().Err(err).Str("file", file).Msg("Skipping unparseable message")
		})
		if err != nil {
			return err
		}
	case strings.HasSuffix(strings.ToLower(path), ".eml"):
		msg, err := emails.ParseEMLFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse EML file: %w", err)
		}
		messages = []*models.HistoricalMessage{msg}
	default:
		return errors.New("invalid file type, expected .eml file or directory")
	}

	i.parsed += len(messages)
	return i.ingest(ctx, messages)
}

func (i *importer) importMBOX(ctx context.Context, path string, batchSize int) error {
	fmt.Printf("Parsing MBOX file: %s\n", path)
	return emails.ParseMBOXFile(path, batchSize, func(batch []*models.HistoricalMessage, progress emails.MBOXProgress) error {
		i.parsed += len(batch)
		i.skipped = progress.EmailsSkipped
		if err := i.ingest(ctx, batch); err != nil {
			return err
		}
		fmt.Printf("  %.1f%% (%d messages)\n", progress.PercentComplete, progress.EmailsProcessed)
		return nil
	})
}

func (i *importer) ingest(ctx context.Context, messages []*models.HistoricalMessage) error {
	if len(messages) == 0 {
		return nil
	}
	result, err := i.pipeline.Run(ctx, i.userID, messages)
	if result != nil {
		i.processed += result.Processed
		i.errors += result.Errors
	}
	return err
}
