package patterns

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// InlineTrigger recomputes profiles in-process when ingestion asks for it
type InlineTrigger struct {
	analyzer *Analyzer
	logger   zerolog.Logger
}

// NewInlineTrigger wraps an analyzer
func NewInlineTrigger(analyzer *Analyzer, logger zerolog.Logger) *InlineTrigger {
	return &InlineTrigger{analyzer: analyzer, logger: logger.With().Str("component", "inline_trigger").Logger()}
}

// TriggerAggregation rebuilds the category profile for relationshipType.
// A relationship with no stored examples is not an error.
func (t *InlineTrigger) TriggerAggregation(ctx context.Context, userID, relationshipType string) error {
	_, err := t.analyzer.Recompute(ctx, userID, relationshipType)
	if errors.Is(err, ErrNoExamples) {
		t.logger.Debug().Str("user_id", userID).Str("relationship", relationshipType).Msg("No examples to aggregate")
		return nil
	}
	return err
}
