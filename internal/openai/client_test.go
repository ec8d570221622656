package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/config"
	"tonelearn/internal/llm"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))

		// answer in reverse order to prove the client re-sorts by index
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		var data []item
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Embedding: []float32{float32(i), float32(len(req.Input[i]))}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "text-embedding-3-small"})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": req.Messages[0].Role + ":" + req.Messages[len(req.Messages)-1].Content}}},
			"usage":   map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T) *Client {
	srv := newTestServer(t)
	cfg := &config.Config{
		OpenAIKey:           "sk-test",
		OpenAIBaseURL:       srv.URL + "/v1",
		OpenAIChatModel:     "gpt-4o-mini",
		OpenAITimeout:       5,
		EmbeddingDimensions: 2,
	}
	c, err := NewClient(cfg, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClient_NoProvider(t *testing.T) {
	_, err := NewClient(&config.Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewClient_OpenAIOnly(t *testing.T) {
	c := testClient(t)

	assert.Equal(t, "OpenAI", c.ProviderName())
	assert.False(t, c.IsUsingAzure())
	assert.Equal(t, "gpt-4o-mini", c.GPTModel())
	assert.Equal(t, "text-embedding-3-small", c.EmbeddingModel())
	assert.Nil(t, c.fallback)
}

func TestEmbedBatch_PreservesInputOrder(t *testing.T) {
	c := testClient(t)

	vectors, err := c.EmbedBatch(context.Background(), []string{"a", "bbb", "cc"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 3}, {2, 2}}, vectors)
}

func TestEmbed_Single(t *testing.T) {
	c := testClient(t)

	vector, err := c.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0, 5}, vector)
}

func TestComplete_SendsSystemPrompt(t *testing.T) {
	c := testClient(t)

	out, err := c.Complete(context.Background(), "analyze", llm.CompletionOptions{SystemPrompt: "be terse", MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "system:analyze", out)

	out, err = c.Complete(context.Background(), "analyze", llm.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "user:analyze", out)
}
