package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\": [1, 2]}\n```", `{"a": [1, 2]}`},
		{"plain fence with prose", "Here you go:\n```\n{\"a\":\"b\"}\n```\nLet me know.", `{"a":"b"}`},
		{"prose around object", `Sure! {"x": {"y": 2}} Hope this helps {"z":3}`, `{"x": {"y": 2}}`},
		{"braces inside strings", `{"note": "use } and { freely", "n": 1}`, `{"note": "use } and { freely", "n": 1}`},
		{"escaped quote", `{"q": "she said \"hi}\""}`, `{"q": "she said \"hi}\""}`},
		{"array", `result: [{"a":1},{"a":2}]`, `[{"a":1},{"a":2}]`},
		{"unbalanced falls back to last brace", `{"a": {"b": 1}`, `{"a": {"b": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractJSON_None(t *testing.T) {
	_, err := ExtractJSON("I could not analyze these emails.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractJSON("```\n```")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestProviderName(t *testing.T) {
	assert.Equal(t, "unknown", ProviderName(struct{}{}))
	assert.Equal(t, "stub", ProviderName(named{}))
}

type named struct{}

func (named) ProviderName() string { return "stub" }
