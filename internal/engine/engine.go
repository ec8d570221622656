// Package engine wires the configured providers, stores and services together.
// The server and the command-line tools share it so they agree on one setup.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"tonelearn/internal/analytics"
	"tonelearn/internal/cache"
	"tonelearn/internal/config"
	"tonelearn/internal/database"
	"tonelearn/internal/embeddings"
	"tonelearn/internal/ingest"
	"tonelearn/internal/jobs"
	"tonelearn/internal/llm"
	"tonelearn/internal/models"
	"tonelearn/internal/patterns"
	"tonelearn/internal/providers"
	"tonelearn/internal/redact"
	"tonelearn/internal/relationship"
	"tonelearn/internal/secrets"
	"tonelearn/internal/selector"
	"tonelearn/internal/usage"
	"tonelearn/internal/vectorindex"
)

// ProfileRepository is where profiles live: the database when there is one,
// process memory otherwise
type ProfileRepository interface {
	patterns.ProfileStore
	usage.ProfileDeleter
	ListByUser(ctx context.Context, userID string) ([]models.StoredProfile, error)
}

// Engine holds every service built from one configuration. The database-backed
// fields are nil when no database is available.
type Engine struct {
	Config *config.Config
	DB     *sqlx.DB

	WriteClient   *database.WriteClient
	Profiles      *database.ProfileStore
	Relationships *database.RelationshipStore
	Credentials   *database.CredentialStore
	Analytics     *analytics.Service
	ProfileRepo   ProfileRepository

	Index     vectorindex.Index
	Embedder  *embeddings.Service
	Completer llm.Completer
	Detector  *relationship.Detector
	Redactor  *redact.Redactor

	Analyzer *patterns.Analyzer
	Pipeline *ingest.Pipeline
	Selector *selector.Selector
	Usage    *usage.Service

	// Bus is set when aggregation runs over NATS
	Bus *jobs.Client

	logger zerolog.Logger
}

// Build creates the engine. db may be nil, in which case profiles live in
// memory and relationship, credential and analytics storage is disabled.
func Build(ctx context.Context, cfg *config.Config, db *sqlx.DB, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		Config:   cfg,
		DB:       db,
		Redactor: redact.New(),
		logger:   logger.With().Str("component", "engine").Logger(),
	}

	if db != nil {
		if err := e.buildStores(ctx); err != nil {
			return nil, err
		}
	}

	var err error
	if e.Embedder, err = providers.NewEmbedder(cfg, logger); err != nil {
		return nil, err
	}
	if e.Completer, err = providers.NewCompleter(cfg, logger); err != nil {
		return nil, err
	}
	if e.Index, err = providers.NewIndex(ctx, cfg, logger); err != nil {
		return nil, err
	}

	detectorCache := cache.New[models.RelationshipClassification](time.Hour, 10000)
	if e.Relationships != nil {
		e.Detector = relationship.NewDetector(e.Relationships, detectorCache, logger)
	} else {
		e.Detector = relationship.NewDetector(nil, detectorCache, logger)
	}

	if e.Profiles != nil {
		e.ProfileRepo = e.Profiles
	} else {
		e.ProfileRepo = patterns.NewMemoryStore()
	}
	e.Analyzer = patterns.NewAnalyzer(e.Completer, e.Index, e.ProfileRepo, e.Redactor, patterns.OptionsFromConfig(cfg), logger)

	trigger, err := e.buildTrigger()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.Pipeline = ingest.NewPipeline(e.Embedder, e.Index, e.Detector, e.Redactor, trigger, ingest.OptionsFromConfig(cfg), logger)
	e.Selector = selector.NewSelector(e.Embedder, e.Index, e.Detector, e.Redactor, selector.OptionsFromConfig(cfg), logger)

	var relationships, credentials usage.UserDeleter
	if e.Relationships != nil {
		relationships = e.Relationships
	}
	if e.Credentials != nil {
		credentials = e.Credentials
	}
	e.Usage = usage.NewService(e.Index, e.ProfileRepo, relationships, credentials, cfg.Retry(), logger)

	e.logger.Info().
		Str("embedder", e.Embedder.ProviderName()).
		Str("completer", llm.ProviderName(e.Completer)).
		Str("index", cfg.VectorBackend).
		Str("aggregation", cfg.AggregationMode).
		Bool("database", db != nil).
		Msg("Engine ready")
	return e, nil
}

func (e *Engine) buildStores(ctx context.Context) error {
	e.WriteClient = database.NewWriteClientFromDB(e.DB)
	if err := e.WriteClient.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	e.Profiles = database.NewProfileStore(e.WriteClient)
	e.Relationships = database.NewRelationshipStore(e.WriteClient)

	if e.Config.EncryptionKey != "" {
		cipher, err := secrets.NewCipher(e.Config.EncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to create credential cipher: %w", err)
		}
		e.Credentials = database.NewCredentialStore(e.WriteClient, cipher)
	} else {
		e.logger.Warn().Msg("ENCRYPTION_KEY not set, mailbox credentials will not be stored")
	}

	svc, err := analytics.NewService(e.WriteClient, e.logger)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Analytics disabled")
		return nil
	}
	e.Analytics = svc
	return nil
}

func (e *Engine) buildTrigger() (ingest.AggregationTrigger, error) {
	switch e.Config.AggregationMode {
	case "nats":
		client, err := jobs.NewClient(e.Config.NATSURL, e.Config.NATSToken, e.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		e.Bus = client
		return jobs.NewPublisher(client, e.logger), nil
	case "inline", "":
		return patterns.NewInlineTrigger(e.Analyzer, e.logger), nil
	default:
		return nil, fmt.Errorf("unknown AGGREGATION_MODE %q", e.Config.AggregationMode)
	}
}

// Close flushes pending analytics writes and releases the index and the NATS
// connection. The database belongs to the caller.
func (e *Engine) Close() {
	e.Analytics.Wait()
	if e.Bus != nil {
		e.Bus.Close()
	}
	if e.Index != nil {
		if err := e.Index.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to close vector index")
		}
	}
}
