// Package selector retrieves the user's own past replies as style examples for a new draft.
package selector

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"tonelearn/internal/config"
	"tonelearn/internal/llm"
	"tonelearn/internal/models"
	"tonelearn/internal/redact"
	"tonelearn/internal/relationship"
	"tonelearn/internal/retry"
	"tonelearn/internal/vectorindex"
)

const (
	directCandidateLimit   = 50
	categoryCandidateLimit = 100
)

var (
	// ErrUserRequired is returned when a request has no user id
	ErrUserRequired = errors.New("user id is required")
	// ErrRecipientRequired is returned when a request has no recipient address
	ErrRecipientRequired = errors.New("recipient email is required")
)

// Detector classifies the user's relationship to a recipient
type Detector interface {
	Detect(ctx context.Context, req relationship.Request) (models.RelationshipClassification, error)
}

// Options holds the blend quota
type Options struct {
	DesiredCount      int
	MaxDirectFraction float64
	Retry             retry.Options
}

// OptionsFromConfig reads the SELECTOR_* and RETRY_* settings
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DesiredCount:      cfg.SelectorDesiredCount,
		MaxDirectFraction: cfg.SelectorMaxDirectFraction,
		Retry:             cfg.Retry(),
	}
}

// Request describes the incoming message a draft is being written for
type Request struct {
	UserID         string
	IncomingText   string
	RecipientEmail string
	Subject        string
	// DesiredCount overrides Options.DesiredCount when positive.
	DesiredCount int
}

// Selector blends direct-correspondence and relationship-category examples
type Selector struct {
	embedder llm.Embedder
	index    vectorindex.Index
	detector Detector
	redactor *redact.Redactor
	opts     Options
	logger   zerolog.Logger
}

// NewSelector creates a selector. A nil redactor embeds the incoming text as given.
func NewSelector(embedder llm.Embedder, index vectorindex.Index, detector Detector, redactor *redact.Redactor,
	opts Options, logger zerolog.Logger) *Selector {
	if opts.DesiredCount <= 0 {
		opts.DesiredCount = 25
	}
	if opts.MaxDirectFraction < 0 || opts.MaxDirectFraction > 1 {
		opts.MaxDirectFraction = 0.6
	}
	return &Selector{
		embedder: embedder,
		index:    index,
		detector: detector,
		redactor: redactor,
		opts:     opts,
		logger:   logger.With().Str("component", "selector").Logger(),
	}
}

// MaxDirect is floor(desired x fraction)
func MaxDirect(desired int, fraction float64) int {
	return int(math.Floor(float64(desired) * fraction))
}

// Select runs the two-phase retrieval. Direct examples always precede category
// examples and each phase is ranked by similarity. Any failure after retries is
// returned; an empty result means nothing matched.
func (s *Selector) Select(ctx context.Context, req Request) (*models.ExampleSelectionResult, error) {
	if req.UserID == "" {
		return nil, ErrUserRequired
	}
	recipient := models.NormalizeEmail(req.RecipientEmail)
	if recipient == "" {
		return nil, ErrRecipientRequired
	}

	desired := s.opts.DesiredCount
	if req.DesiredCount > 0 {
		desired = req.DesiredCount
	}
	maxDirect := MaxDirect(desired, s.opts.MaxDirectFraction)

	rel, err := retry.Do(ctx, s.retryOptions("detect"), func(ctx context.Context) (models.RelationshipClassification, error) {
		return s.detector.Detect(ctx, relationship.Request{UserID: req.UserID, RecipientEmail: recipient, Subject: req.Subject})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect relationship: %w", err)
	}

	text := req.IncomingText
	if s.redactor != nil {
		text = s.redactor.Redact(text).Text
	}
	vector, err := retry.Do(ctx, s.retryOptions("embed"), func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed incoming message: %w", err)
	}

	// Phase 1: this exact recipient
	directHits, err := s.search(ctx, vectorindex.SearchQuery{
		Vector: vector,
		Filter: vectorindex.Filter{UserID: req.UserID, RecipientEmail: recipient},
		Limit:  directCandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("direct correspondence search failed: %w", err)
	}

	examples := make([]models.SelectedExample, 0, desired)
	used := make(map[string]bool)
	for _, hit := range directHits {
		if len(examples) >= maxDirect || len(examples) >= desired {
			break
		}
		if used[hit.ID] {
			continue
		}
		used[hit.ID] = true
		examples = append(examples, toExample(hit, true))
	}
	directCount := len(examples)

	// Phase 2: same relationship category
	var categoryHits []vectorindex.Hit
	if remaining := desired - directCount; remaining > 0 && rel.Type != "" {
		excluded := make([]string, 0, len(used))
		for _, ex := range examples {
			excluded = append(excluded, ex.ID)
		}

		categoryHits, err = s.search(ctx, vectorindex.SearchQuery{
			Vector: vector,
			Filter: vectorindex.Filter{
				UserID:                req.UserID,
				RelationshipType:      rel.Type,
				ExcludeRecipientEmail: recipient,
				ExcludeIDs:            excluded,
			},
			Limit: categoryCandidateLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("relationship category search failed: %w", err)
		}

		for _, hit := range categoryHits {
			if len(examples)-directCount >= remaining {
				break
			}
			// The index already excludes the recipient; indexes that ignore the filter are checked here
			if used[hit.ID] || models.NormalizeEmail(hit.Record.RecipientEmail) == recipient {
				continue
			}
			used[hit.ID] = true
			examples = append(examples, toExample(hit, false))
		}
	}

	stats := models.SelectionStats{
		TotalCandidates:      len(directHits) + len(categoryHits),
		DirectCorrespondence: directCount,
	}
	for _, ex := range examples {
		if ex.Metadata.Relationship.Type == rel.Type {
			stats.RelationshipMatches++
		}
	}

	s.logger.Debug().
		Str("user_id", req.UserID).
		Str("relationship", rel.Type).
		Int("direct", directCount).
		Int("category", len(examples)-directCount).
		Int("candidates", stats.TotalCandidates).
		Msg("Selected examples")

	return &models.ExampleSelectionResult{
		Relationship: rel,
		Examples:     examples,
		Stats:        stats,
	}, nil
}

func (s *Selector) search(ctx context.Context, query vectorindex.SearchQuery) ([]vectorindex.Hit, error) {
	return retry.Do(ctx, s.retryOptions("search"), func(ctx context.Context) ([]vectorindex.Hit, error) {
		return s.index.Search(ctx, query)
	})
}

func (s *Selector) retryOptions(op string) retry.Options {
	opts := s.opts.Retry
	opts.OnRetry = func(err error, attempt int) {
		s.logger.Warn().Err(err).Str("operation", op).Int("attempt", attempt).Msg("Retrying")
	}
	return opts
}

func toExample(hit vectorindex.Hit, direct bool) models.SelectedExample {
	return models.SelectedExample{
		ID:       hit.ID,
		Text:     hit.Record.Text,
		Metadata: hit.Record,
		Score:    hit.Score,
		Direct:   direct,
	}
}
