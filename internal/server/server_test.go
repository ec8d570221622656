package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/config"
	"tonelearn/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	providers := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(providers.Close)

	cfg := &config.Config{
		Version:                "test",
		EmbeddingProvider:      "ollama",
		LLMProvider:            "anthropic",
		AnthropicKey:           "key",
		OllamaBaseURL:          providers.URL,
		EmbeddingDimensions:    3,
		EmbeddingCacheTTL:      time.Hour,
		EmbeddingCacheMaxItems: 10,
		VectorBackend:          "memory",
		AggregationMode:        "inline",
		RetryMaxAttempts:       1,
	}
	eng, err := engine.Build(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	srv := New(eng, zerolog.Nop())
	srv.Initialize()
	return srv
}

func TestRoutes_WithoutDatabase(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
	}{
		{name: "health", method: http.MethodGet, target: "/healthz", code: http.StatusOK},
		{name: "db health", method: http.MethodGet, target: "/healthz/db", code: http.StatusServiceUnavailable},
		{name: "index health", method: http.MethodGet, target: "/healthz/index", code: http.StatusOK},
		{name: "root", method: http.MethodGet, target: "/api/", code: http.StatusOK},
		{name: "list profiles", method: http.MethodGet, target: "/api/users/u1/patterns", code: http.StatusOK},
		{name: "missing profile", method: http.MethodGet, target: "/api/users/u1/patterns/aggregate/aggregate", code: http.StatusNotFound},
		{name: "analyze without examples", method: http.MethodPost, target: "/api/users/u1/patterns/analyze", body: `{}`, code: http.StatusNotFound},
		{name: "usage of unknown example", method: http.MethodPut, target: "/api/examples/nope/usage", body: `{"used_count":1}`, code: http.StatusNotFound},
		{name: "purge", method: http.MethodDelete, target: "/api/users/u1", code: http.StatusOK},
		{name: "analytics", method: http.MethodGet, target: "/api/analytics/summary", code: http.StatusServiceUnavailable},
		{name: "account", method: http.MethodPut, target: "/api/users/u1/account", body: `{"email":"me@example.com"}`, code: http.StatusServiceUnavailable},
		{name: "relationships", method: http.MethodPut, target: "/api/users/u1/relationships", body: `{}`, code: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestSwaggerDocs(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/users/{userID}/examples/select")
	assert.Contains(t, rec.Body.String(), "Tonelearn API")
}
