// Package llm defines the provider capabilities the engine depends on.
// Concrete variants live in their own packages and are chosen once at startup.
package llm

import (
	"context"
	"errors"
)

// ErrNoJSON is returned when a completion holds no JSON value
var ErrNoJSON = errors.New("no JSON found in completion")

// Embedder turns text into fixed-length vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionOptions tunes a single completion call
type CompletionOptions struct {
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// Completer sends a prompt to a language model and returns its text reply
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// Named is implemented by variants that can report which provider served them
type Named interface {
	ProviderName() string
}

// ProviderName returns the provider label of v, or "unknown"
func ProviderName(v any) string {
	if n, ok := v.(Named); ok {
		return n.ProviderName()
	}
	return "unknown"
}
