package providers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/config"
	"tonelearn/internal/llm"
	"tonelearn/internal/vectorindex"
)

func baseConfig() *config.Config {
	return &config.Config{
		OpenAITimeout:          5,
		OpenAIChatModel:        "gpt-4o-mini",
		AnthropicModel:         "claude-3-5-haiku-latest",
		OllamaBaseURL:          "http://localhost:11434",
		OllamaEmbedModel:       "nomic-embed-text",
		EmbeddingDimensions:    3,
		EmbeddingCacheTTL:      time.Hour,
		EmbeddingCacheMaxItems: 10,
	}
}

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		want     string
		wantErr  bool
	}{
		{name: "ollama", provider: "ollama", want: "Ollama"},
		{name: "openai", provider: "openai", apiKey: "sk-test", want: "OpenAI"},
		{name: "openai without key", provider: "openai", wantErr: true},
		{name: "unknown", provider: "cohere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.EmbeddingProvider = tt.provider
			cfg.OpenAIKey = tt.apiKey

			embedder, err := NewEmbedder(cfg, zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, embedder.ProviderName())
		})
	}
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		openai   string
		claude   string
		want     string
		wantErr  error
	}{
		{name: "anthropic", provider: "anthropic", claude: "key", want: "Anthropic"},
		{name: "openai", provider: "openai", openai: "sk-test", want: "OpenAI"},
		{name: "unknown", provider: "mistral", wantErr: ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.LLMProvider = tt.provider
			cfg.OpenAIKey = tt.openai
			cfg.AnthropicKey = tt.claude

			completer, err := NewCompleter(cfg, zerolog.Nop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, llm.ProviderName(completer))
		})
	}
}

func TestNewCompleter_AnthropicRequiresKey(t *testing.T) {
	cfg := baseConfig()
	cfg.LLMProvider = "anthropic"

	_, err := NewCompleter(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestNewIndex(t *testing.T) {
	cfg := baseConfig()
	cfg.VectorBackend = "memory"

	index, err := NewIndex(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &vectorindex.MemoryIndex{}, index)

	cfg.VectorBackend = "pinecone"
	_, err = NewIndex(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
