package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"tonelearn/internal/retry"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	Environment string
	Version     string
	LogLevel    string
	DatabaseURL string // Postgres or MySQL - profiles, relationships, credentials, analytics

	// Provider selection, resolved once at startup
	EmbeddingProvider string // openai | ollama
	LLMProvider       string // openai | anthropic

	OpenAIKey              string
	OpenAIBaseURL          string
	OpenAITimeout          int // seconds
	OpenAIChatModel        string
	UseAzureOpenAI         bool
	AzureOpenAIKey         string
	AzureOpenAIEndpoint    string
	AzureOpenAIAPIVersion  string
	AzureOpenAIChatDeploy  string
	AzureOpenAIEmbedDeploy string
	AnthropicKey           string
	AnthropicModel         string
	OllamaBaseURL          string
	OllamaEmbedModel       string
	EmbeddingDimensions    int
	EmbeddingCacheTTL      time.Duration
	EmbeddingCacheMaxItems int

	VectorBackend    string // qdrant | memory
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	QdrantCollection string

	NATSURL         string
	NATSToken       string
	AggregationMode string // inline | nats

	EncryptionKey string

	RetryMaxAttempts   int
	RetryInitialDelay  time.Duration
	RetryBackoffFactor float64

	IngestChunkSize      int
	IngestErrorThreshold float64
	RequireRawMessage    bool

	SelectorDesiredCount      int
	SelectorMaxDirectFraction float64

	PatternBatchSize      int
	PatternConcurrency    int
	PatternParseRetries   int
	PatternMaxExamples    int
	PatternMaxExpressions int
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "production"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		EmbeddingProvider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", "openai")),
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "openai")),

		OpenAIKey:              os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:          os.Getenv("OPENAI_BASE_URL"),
		OpenAITimeout:          getEnvInt("OPENAI_TIMEOUT", 60),
		OpenAIChatModel:        getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		UseAzureOpenAI:         getEnvBool("USE_AZURE_OPENAI", false),
		AzureOpenAIKey:         os.Getenv("AZURE_OPENAI_API_KEY"),
		AzureOpenAIEndpoint:    os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIAPIVersion:  getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
		AzureOpenAIChatDeploy:  getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT", "gpt-4o-mini"),
		AzureOpenAIEmbedDeploy: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", "text-embedding-3-small"),
		AnthropicKey:           os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:         getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		OllamaBaseURL:          getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaEmbedModel:       getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		EmbeddingDimensions:    getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		EmbeddingCacheTTL:      getEnvDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),
		EmbeddingCacheMaxItems: getEnvInt("EMBEDDING_CACHE_MAX_ITEMS", 10000),

		VectorBackend:    strings.ToLower(getEnv("VECTOR_BACKEND", "qdrant")),
		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantUseTLS:     getEnvBool("QDRANT_USE_TLS", false),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "email_examples"),

		NATSURL:         getEnv("NATS_URL", "nats://localhost:4222"),
		NATSToken:       os.Getenv("NATS_TOKEN"),
		AggregationMode: strings.ToLower(getEnv("AGGREGATION_MODE", "inline")),

		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),

		RetryMaxAttempts:   getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay:  time.Duration(getEnvInt("RETRY_INITIAL_DELAY_MS", 1000)) * time.Millisecond,
		RetryBackoffFactor: getEnvFloat("RETRY_BACKOFF_FACTOR", 2),

		IngestChunkSize:      getEnvInt("INGEST_CHUNK_SIZE", 100),
		IngestErrorThreshold: getEnvFloat("INGEST_ERROR_THRESHOLD", 0.1),
		RequireRawMessage:    getEnvBool("REQUIRE_RAW_MESSAGE", true),

		SelectorDesiredCount:      getEnvInt("SELECTOR_DESIRED_COUNT", 25),
		SelectorMaxDirectFraction: getEnvFloat("SELECTOR_MAX_DIRECT_FRACTION", 0.6),

		PatternBatchSize:      getEnvInt("PATTERN_BATCH_SIZE", 50),
		PatternConcurrency:    getEnvInt("PATTERN_CONCURRENCY", 4),
		PatternParseRetries:   getEnvInt("PATTERN_PARSE_RETRIES", 2),
		PatternMaxExamples:    getEnvInt("PATTERN_MAX_EXAMPLES", 10),
		PatternMaxExpressions: getEnvInt("PATTERN_MAX_EXPRESSIONS", 15),
	}

	return config
}

// IsDevelopment reports whether the service runs in a local development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// ValidateAggregationWorker checks what a standalone aggregation worker needs.
// The worker reads the examples the ingestion process wrote and persists the
// profiles it computes, so neither can live in its own memory.
func (c *Config) ValidateAggregationWorker() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required: recomputed profiles would be lost"))
	}
	if c.VectorBackend == "memory" {
		errs = append(errs, errors.New("VECTOR_BACKEND=memory cannot be shared with the ingesting process"))
	}
	return errors.Join(errs...)
}

// Retry returns the backoff policy shared by every network-crossing call
func (c *Config) Retry() retry.Options {
	return retry.Options{
		MaxAttempts:   c.RetryMaxAttempts,
		InitialDelay:  c.RetryInitialDelay,
		BackoffFactor: c.RetryBackoffFactor,
	}
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float64 with a default fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s", "24h")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var logger zerolog.Logger
	if c.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	logger = logger.With().
		Timestamp().
		Str("service", "tonelearn").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
