// Package embeddings puts a content-hash keyed cache in front of an embedding provider.
package embeddings

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog"

	"tonelearn/internal/cache"
	"tonelearn/internal/llm"
)

// Service embeds text through a provider, reusing vectors for text it has already seen
type Service struct {
	client llm.Embedder
	cache  *cache.Cache[[]float32]
	logger zerolog.Logger
}

// NewService wraps client. A nil cache disables caching.
func NewService(client llm.Embedder, c *cache.Cache[[]float32], logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		cache:  c,
		logger: logger.With().Str("component", "embeddings").Str("provider", llm.ProviderName(client)).Logger(),
	}
}

// ProviderName reports the wrapped provider
func (s *Service) ProviderName() string {
	return llm.ProviderName(s.client)
}

// Embed returns the embedding for text, using the cache when available
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := ContentHash(text)
	if vec, ok := s.lookup(hash); ok {
		return vec, nil
	}

	vec, err := s.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.store(hash, vec)
	return vec, nil
}

// EmbedBatch sends only cache misses to the provider. Duplicate texts inside
// one batch are embedded once. Results are returned in input order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	pending := make(map[string][]int)
	var missing []string
	var missingHashes []string

	for i, text := range texts {
		hash := ContentHash(text)
		if vec, ok := s.lookup(hash); ok {
			out[i] = vec
			continue
		}
		if _, seen := pending[hash]; !seen {
			missing = append(missing, text)
			missingHashes = append(missingHashes, hash)
		}
		pending[hash] = append(pending[hash], i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	s.logger.Debug().
		Int("batch_size", len(texts)).
		Int("cache_misses", len(missing)).
		Msg("Embedding batch")

	vectors, err := s.client.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(vectors), len(missing))
	}

	for j, vec := range vectors {
		hash := missingHashes[j]
		s.store(hash, vec)
		for _, i := range pending[hash] {
			out[i] = vec
		}
	}
	return out, nil
}

func (s *Service) lookup(hash string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(hash)
}

func (s *Service) store(hash string, vec []float32) {
	if s.cache != nil {
		s.cache.Set(hash, vec)
	}
}

// ContentHash computes a SHA-256 hash of text content.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}
