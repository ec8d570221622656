// Package providers picks the embedding, completion and index variants once at
// startup from configuration.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tonelearn/internal/anthropic"
	"tonelearn/internal/cache"
	"tonelearn/internal/config"
	"tonelearn/internal/embeddings"
	"tonelearn/internal/llm"
	"tonelearn/internal/ollama"
	"tonelearn/internal/openai"
	"tonelearn/internal/vectorindex"
)

// ErrUnknownProvider is returned for a provider name no variant answers to
var ErrUnknownProvider = errors.New("unknown provider")

// NewEmbedder returns the configured embedding provider behind the embedding cache
func NewEmbedder(cfg *config.Config, logger zerolog.Logger) (*embeddings.Service, error) {
	var client llm.Embedder
	switch cfg.EmbeddingProvider {
	case "openai", "azure":
		c, err := openai.NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		client = c
	case "ollama":
		client = ollama.NewClient(cfg.OllamaBaseURL, cfg.OllamaEmbedModel)
	default:
		return nil, fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", ErrUnknownProvider, cfg.EmbeddingProvider)
	}

	var c *cache.Cache[[]float32]
	if cfg.EmbeddingCacheMaxItems > 0 {
		c = cache.New[[]float32](cfg.EmbeddingCacheTTL, cfg.EmbeddingCacheMaxItems)
	}

	logger.Info().Str("provider", llm.ProviderName(client)).Msg("Embedding provider selected")
	return embeddings.NewService(client, c, logger), nil
}

// NewCompleter returns the configured completion provider
func NewCompleter(cfg *config.Config, logger zerolog.Logger) (llm.Completer, error) {
	var client llm.Completer
	switch cfg.LLMProvider {
	case "openai", "azure":
		c, err := openai.NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		client = c
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, errors.New("LLM_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
		client = anthropic.NewClient(cfg.AnthropicKey, cfg.AnthropicModel, "")
	default:
		return nil, fmt.Errorf("%w: LLM_PROVIDER=%q", ErrUnknownProvider, cfg.LLMProvider)
	}

	logger.Info().Str("provider", llm.ProviderName(client)).Msg("Completion provider selected")
	return client, nil
}

// NewIndex returns the configured vector index, initialised
func NewIndex(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (vectorindex.Index, error) {
	var index vectorindex.Index
	switch cfg.VectorBackend {
	case "qdrant":
		q, err := vectorindex.NewQdrantIndex(cfg, logger)
		if err != nil {
			return nil, err
		}
		index = q
	case "memory":
		logger.Warn().Msg("Using in-memory vector index, examples are lost on restart")
		index = vectorindex.NewMemoryIndex(cfg.EmbeddingDimensions)
	default:
		return nil, fmt.Errorf("%w: VECTOR_BACKEND=%q", ErrUnknownProvider, cfg.VectorBackend)
	}

	if err := index.Init(ctx); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to initialise vector index: %w", err)
	}
	return index, nil
}
