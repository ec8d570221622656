// Package openai provides a unified client for OpenAI API access
// with support for both Azure OpenAI (primary) and OpenAI platform (fallback)
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"tonelearn/internal/config"
	"tonelearn/internal/llm"
)

// Client wraps OpenAI client with Azure OpenAI support and fallback capability.
// It serves both as an llm.Embedder and an llm.Completer.
type Client struct {
	primary      *openai.Client
	fallback     *openai.Client
	useAzure     bool
	gptModel     string
	embedModel   openai.EmbeddingModel
	dimensions   int
	providerName string
	logger       zerolog.Logger
}

var (
	_ llm.Embedder  = (*Client)(nil)
	_ llm.Completer = (*Client)(nil)
)

// ErrEmptyCompletion is returned when the model answers with no choices
var ErrEmptyCompletion = errors.New("openai returned no choices")

// NewClient creates a new OpenAI client with Azure as primary and OpenAI as fallback
func NewClient(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	client := &Client{
		dimensions: cfg.EmbeddingDimensions,
		logger:     logger.With().Str("component", "openai").Logger(),
	}
	httpClient := &http.Client{Timeout: time.Duration(cfg.OpenAITimeout) * time.Second}

	if cfg.UseAzureOpenAI && cfg.AzureOpenAIKey != "" && cfg.AzureOpenAIEndpoint != "" {
		azureConfig := openai.DefaultAzureConfig(cfg.AzureOpenAIKey, cfg.AzureOpenAIEndpoint)
		azureConfig.APIVersion = cfg.AzureOpenAIAPIVersion
		azureConfig.HTTPClient = httpClient
		client.primary = openai.NewClientWithConfig(azureConfig)
		client.useAzure = true
		client.gptModel = cfg.AzureOpenAIChatDeploy
		client.embedModel = openai.EmbeddingModel(cfg.AzureOpenAIEmbedDeploy)
		client.providerName = "Azure OpenAI"

		client.logger.Info().Str("endpoint", cfg.AzureOpenAIEndpoint).Msg("Primary provider: Azure OpenAI")
	}

	if cfg.OpenAIKey != "" {
		openaiConfig := openai.DefaultConfig(cfg.OpenAIKey)
		openaiConfig.HTTPClient = httpClient
		if cfg.OpenAIBaseURL != "" {
			openaiConfig.BaseURL = cfg.OpenAIBaseURL
		}
		client.fallback = openai.NewClientWithConfig(openaiConfig)

		if !client.useAzure {
			client.primary = client.fallback
			client.fallback = nil
			client.gptModel = cfg.OpenAIChatModel
			client.embedModel = openai.SmallEmbedding3
			client.providerName = "OpenAI"

			client.logger.Info().Msg("Primary provider: OpenAI (Azure not configured)")
		} else {
			client.logger.Info().Msg("Fallback provider: OpenAI")
		}
	}

	if client.primary == nil {
		return nil, fmt.Errorf("no OpenAI provider configured: set AZURE_OPENAI_ENDPOINT + AZURE_OPENAI_API_KEY or OPENAI_API_KEY")
	}

	return client, nil
}

// TestConnection verifies the API connection works
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := c.EmbedBatch(ctx, []string{"test"}); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.providerName, err)
	}
	return nil
}

// Embed generates the embedding of a single text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for texts, preserving input order
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      c.embedModel,
		Dimensions: c.dimensions,
	}
	resp, err := c.primary.CreateEmbeddings(ctx, req)
	if err != nil && c.fallback != nil {
		c.logger.Warn().Err(err).Msg("Primary embeddings failed, trying fallback")
		req.Model = openai.SmallEmbedding3
		resp, err = c.fallback.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("both providers failed: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// the API tags each vector with its input index
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}

// Complete runs a chat completion with an optional system prompt
func (c *Client) Complete(ctx context.Context, prompt string, opts llm.CompletionOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: opts.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.CreateChatCompletion(ctx, messages, opts.MaxTokens, opts.Temperature)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Chat completion finished")
	return resp.Choices[0].Message.Content, nil
}

// CreateChatCompletion generates a chat completion
func (c *Client) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.gptModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := c.primary.CreateChatCompletion(ctx, req)
	if err != nil && c.fallback != nil {
		c.logger.Warn().Err(err).Msg("Primary chat failed, trying fallback")
		req.Model = string(openai.GPT4oMini)
		resp, err = c.fallback.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("both providers failed: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	return &resp, nil
}

// ProviderName returns the current primary provider name
func (c *Client) ProviderName() string {
	return c.providerName
}

// IsUsingAzure returns true if Azure OpenAI is the primary provider
func (c *Client) IsUsingAzure() bool {
	return c.useAzure
}

// GPTModel returns the GPT model/deployment name being used
func (c *Client) GPTModel() string {
	return c.gptModel
}

// EmbeddingModel returns the embedding model/deployment name being used
func (c *Client) EmbeddingModel() string {
	return string(c.embedModel)
}
