// Package patterns builds a writing-style profile from a user's historical replies.
// Each batch of replies is described by a language model and the batch
// observations are merged into one profile weighted by batch size.
package patterns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tonelearn/internal/config"
	"tonelearn/internal/llm"
	"tonelearn/internal/models"
	"tonelearn/internal/redact"
	"tonelearn/internal/vectorindex"
)

var (
	// ErrAllBatchesFailed is returned when no batch produced usable observations
	ErrAllBatchesFailed = errors.New("all pattern batches failed")
	// ErrNoExamples is returned when there is nothing to analyse
	ErrNoExamples = errors.New("no examples to analyze")
)

// ProfileStore persists profiles keyed by (user, preference type, target)
type ProfileStore interface {
	Upsert(ctx context.Context, p models.StoredProfile) error
	Get(ctx context.Context, userID, preferenceType, target string) (*models.StoredProfile, error)
}

// Options tunes batching and the merged profile
type Options struct {
	BatchSize      int
	Concurrency    int
	ParseRetries   int
	MaxExamples    int
	MaxExpressions int
	Temperature    float32
	MaxTokens      int
}

// OptionsFromConfig reads the PATTERN_* settings
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BatchSize:      cfg.PatternBatchSize,
		Concurrency:    cfg.PatternConcurrency,
		ParseRetries:   cfg.PatternParseRetries,
		MaxExamples:    cfg.PatternMaxExamples,
		MaxExpressions: cfg.PatternMaxExpressions,
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.ParseRetries < 0 {
		o.ParseRetries = 0
	}
	if o.Temperature == 0 {
		o.Temperature = 0.2
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 4000
	}
	return o
}

// Analysis is the outcome of one analysis run
type Analysis struct {
	Patterns       models.WritingPatterns `json:"patterns"`
	EmailsAnalyzed int                    `json:"emails_analyzed"`
	Batches        int                    `json:"batches"`
	FailedBatches  int                    `json:"failed_batches"`
}

// Analyzer turns a corpus into a WritingPatterns profile
type Analyzer struct {
	completer llm.Completer
	index     vectorindex.Index
	store     ProfileStore
	redactor  *redact.Redactor
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAnalyzer creates an analyzer. index and store are only needed by the
// corpus-reading and persisting methods.
func NewAnalyzer(completer llm.Completer, index vectorindex.Index, store ProfileStore, redactor *redact.Redactor,
	opts Options, logger zerolog.Logger) *Analyzer {
	if redactor == nil {
		redactor = redact.New()
	}
	return &Analyzer{
		completer: completer,
		index:     index,
		store:     store,
		redactor:  redactor,
		opts:      opts.withDefaults(),
		logger:    logger.With().Str("component", "patterns").Logger(),
		now:       time.Now,
	}
}

// AnalyzeBatch asks the model to describe one batch. Unparseable replies are
// retried up to ParseRetries times; completion errors are returned at once.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, batch []models.IndexedExampleRecord) (*models.BatchPatterns, error) {
	if len(batch) == 0 {
		return nil, ErrNoExamples
	}

	redacted := make([]models.IndexedExampleRecord, len(batch))
	for i, r := range batch {
		r.Text = a.redactor.Redact(r.Text).Text
		r.Subject = a.redactor.Redact(r.Subject).Text
		redacted[i] = r
	}
	dateRange := batchRange(redacted)
	prompt := buildBatchPrompt(redacted, dateRange)

	opts := llm.CompletionOptions{
		Temperature:  a.opts.Temperature,
		MaxTokens:    a.opts.MaxTokens,
		SystemPrompt: systemPrompt,
	}

	var lastErr error
	for attempt := 0; attempt <= a.opts.ParseRetries; attempt++ {
		raw, err := a.completer.Complete(ctx, prompt, opts)
		if err != nil {
			return nil, fmt.Errorf("pattern completion: %w", err)
		}

		patterns, err := parsePatterns(raw)
		if err == nil {
			return &models.BatchPatterns{
				Patterns:   patterns,
				EmailCount: len(batch),
				DateRange:  dateRange,
			}, nil
		}

		lastErr = err
		a.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("raw_length", len(raw)).
			Msg("Failed to parse pattern response")
	}
	return nil, fmt.Errorf("parse pattern response: %w", lastErr)
}

func parsePatterns(raw string) (models.WritingPatterns, error) {
	var p models.WritingPatterns
	body, err := llm.ExtractJSON(raw)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return p, err
	}
	return p, nil
}

// Analyze partitions the corpus, analyses batches concurrently and merges the
// survivors. It fails only when every batch fails.
func (a *Analyzer) Analyze(ctx context.Context, corpus []models.IndexedExampleRecord) (*Analysis, error) {
	if len(corpus) == 0 {
		return nil, ErrNoExamples
	}

	batches := Partition(corpus, a.opts.BatchSize)
	results := make([]*models.BatchPatterns, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := a.AnalyzeBatch(gctx, batch)
			if err != nil {
				a.logger.Error().
					Err(err).
					Int("batch", i).
					Int("emails", len(batch)).
					Msg("Pattern batch failed, skipping")
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ok []models.BatchPatterns
	for _, r := range results {
		if r != nil {
			ok = append(ok, *r)
		}
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("%w: %d batches", ErrAllBatchesFailed, len(batches))
	}

	analysis := &Analysis{
		Patterns:      a.Aggregate(ok),
		Batches:       len(ok),
		FailedBatches: len(batches) - len(ok),
	}
	for _, r := range ok {
		analysis.EmailsAnalyzed += r.EmailCount
	}

	a.logger.Info().
		Int("emails", analysis.EmailsAnalyzed).
		Int("batches", analysis.Batches).
		Int("failed_batches", analysis.FailedBatches).
		Msg("Pattern analysis complete")

	return analysis, nil
}

// Aggregate merges batch observations with the analyzer's list caps
func (a *Analyzer) Aggregate(batches []models.BatchPatterns) models.WritingPatterns {
	return Aggregate(batches, AggregateOptions{MaxExamples: a.opts.MaxExamples, MaxExpressions: a.opts.MaxExpressions})
}

// AnalyzeRelationship recomputes and stores the category profile for one relationship type
func (a *Analyzer) AnalyzeRelationship(ctx context.Context, userID, relationshipType string) (*models.StoredProfile, error) {
	filter := vectorindex.Filter{UserID: userID, RelationshipType: relationshipType}
	return a.analyzeAndStore(ctx, filter, models.PreferenceCategory, relationshipType)
}

// AnalyzeAggregate recomputes and stores the profile over the user's whole corpus
func (a *Analyzer) AnalyzeAggregate(ctx context.Context, userID string) (*models.StoredProfile, error) {
	filter := vectorindex.Filter{UserID: userID}
	return a.analyzeAndStore(ctx, filter, models.PreferenceAggregate, models.AggregateTarget)
}

// Recompute dispatches on target: AggregateTarget rebuilds the aggregate
// profile, anything else is a relationship type.
func (a *Analyzer) Recompute(ctx context.Context, userID, target string) (*models.StoredProfile, error) {
	if target == "" || target == models.AggregateTarget {
		return a.AnalyzeAggregate(ctx, userID)
	}
	return a.AnalyzeRelationship(ctx, userID, target)
}

// Profile reads a stored profile
func (a *Analyzer) Profile(ctx context.Context, userID, preferenceType, target string) (*models.StoredProfile, error) {
	return a.store.Get(ctx, userID, preferenceType, target)
}

func (a *Analyzer) analyzeAndStore(ctx context.Context, filter vectorindex.Filter, prefType, target string) (*models.StoredProfile, error) {
	records, err := a.index.ScrollAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	corpus := Corpus(records)
	if len(corpus) == 0 {
		return nil, ErrNoExamples
	}

	analysis, err := a.Analyze(ctx, corpus)
	if err != nil {
		return nil, err
	}

	profile := models.StoredProfile{
		UserID:           filter.UserID,
		PreferenceType:   prefType,
		TargetIdentifier: target,
		Patterns:         analysis.Patterns,
		EmailsAnalyzed:   analysis.EmailsAnalyzed,
		BatchCount:       analysis.Batches,
		UpdatedAt:        a.now().UTC(),
	}
	if err := a.store.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	a.logger.Info().
		Str("user_id", filter.UserID).
		Str("preference_type", prefType).
		Str("target", target).
		Int("emails", analysis.EmailsAnalyzed).
		Msg("Stored writing profile")

	return &profile, nil
}

// Corpus keeps one record per message, oldest first. Recipient fan-out writes
// the same reply once per recipient and it must only be counted once.
func Corpus(records []models.IndexedExampleRecord) []models.IndexedExampleRecord {
	byMessage := make(map[string]models.IndexedExampleRecord, len(records))
	for _, r := range records {
		key := r.MessageID
		if key == "" {
			key = r.ID
		}
		if prev, ok := byMessage[key]; ok && prev.ID <= r.ID {
			continue
		}
		byMessage[key] = r
	}

	out := make([]models.IndexedExampleRecord, 0, len(byMessage))
	for _, r := range byMessage {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.Before(out[j].SentAt)
		}
		return out[i].MessageID < out[j].MessageID
	})
	return out
}

// Partition splits the corpus into batches of at most size records
func Partition(corpus []models.IndexedExampleRecord, size int) [][]models.IndexedExampleRecord {
	if size <= 0 {
		size = 50
	}
	var batches [][]models.IndexedExampleRecord
	for start := 0; start < len(corpus); start += size {
		end := start + size
		if end > len(corpus) {
			end = len(corpus)
		}
		batches = append(batches, corpus[start:end])
	}
	return batches
}

// batchRange is the first and last send date in the batch
func batchRange(batch []models.IndexedExampleRecord) models.DateRange {
	var r models.DateRange
	for _, rec := range batch {
		if rec.SentAt.IsZero() {
			continue
		}
		if r.Start.IsZero() || rec.SentAt.Before(r.Start) {
			r.Start = rec.SentAt
		}
		if rec.SentAt.After(r.End) {
			r.End = rec.SentAt
		}
	}
	return r
}
