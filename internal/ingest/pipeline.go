// Package ingest turns historical messages into recipient-scoped indexed examples.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tonelearn/internal/config"
	"tonelearn/internal/llm"
	"tonelearn/internal/models"
	"tonelearn/internal/nlp"
	"tonelearn/internal/redact"
	"tonelearn/internal/relationship"
	"tonelearn/internal/retry"
	"tonelearn/internal/vectorindex"
)

// Detector classifies the user's relationship to a recipient
type Detector interface {
	Detect(ctx context.Context, req relationship.Request) (models.RelationshipClassification, error)
}

// AggregationTrigger schedules a style-profile recomputation for one relationship type
type AggregationTrigger interface {
	TriggerAggregation(ctx context.Context, userID, relationshipType string) error
}

// Options tunes a pipeline run
type Options struct {
	ChunkSize         int
	ErrorThreshold    float64
	RequireRawMessage bool
	Retry             retry.Options
}

// OptionsFromConfig reads the INGEST_* and RETRY_* settings
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChunkSize:         cfg.IngestChunkSize,
		ErrorThreshold:    cfg.IngestErrorThreshold,
		RequireRawMessage: cfg.RequireRawMessage,
		Retry:             cfg.Retry(),
	}
}

// Result summarises a run. Processed counts every attempted example, so
// Processed-Errors records were written.
type Result struct {
	Processed     int            `json:"processed"`
	Errors        int            `json:"errors"`
	Duration      time.Duration  `json:"duration"`
	Relationships map[string]int `json:"relationship_distribution"`
}

// Pipeline redacts, fans out, classifies, embeds and indexes messages
type Pipeline struct {
	embedder llm.Embedder
	index    vectorindex.Index
	detector Detector
	redactor *redact.Redactor
	trigger  AggregationTrigger
	opts     Options
	logger   zerolog.Logger
}

// NewPipeline creates a pipeline. trigger may be nil to skip profile recomputation.
func NewPipeline(embedder llm.Embedder, index vectorindex.Index, detector Detector, redactor *redact.Redactor,
	trigger AggregationTrigger, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100
	}
	if redactor == nil {
		redactor = redact.New()
	}
	return &Pipeline{
		embedder: embedder,
		index:    index,
		detector: detector,
		redactor: redactor,
		trigger:  trigger,
		opts:     opts,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// outcome is one message's local tally, folded into the run totals after its chunk joins
type outcome struct {
	processed     int
	errors        int
	relationships map[string]int
}

// Run ingests messages for userID. Chunks run sequentially and messages within a
// chunk run concurrently. The run stops with *ErrorRateExceededError once the
// running error rate passes the threshold; the returned Result is still filled.
func (p *Pipeline) Run(ctx context.Context, userID string, messages []*models.HistoricalMessage) (*Result, error) {
	start := time.Now()
	result := &Result{Relationships: make(map[string]int)}

	p.logger.Info().
		Str("user_id", userID).
		Int("messages", len(messages)).
		Int("chunk_size", p.opts.ChunkSize).
		Msg("Starting ingestion run")

	for chunkStart := 0; chunkStart < len(messages); chunkStart += p.opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		chunkEnd := chunkStart + p.opts.ChunkSize
		if chunkEnd > len(messages) {
			chunkEnd = len(messages)
		}
		chunk := messages[chunkStart:chunkEnd]

		outcomes := make([]outcome, len(chunk))
		var wg sync.WaitGroup
		for i, msg := range chunk {
			wg.Add(1)
			go func(i int, msg *models.HistoricalMessage) {
				defer wg.Done()
				outcomes[i] = p.processMessage(ctx, userID, msg)
			}(i, msg)
		}
		wg.Wait()

		for _, o := range outcomes {
			result.Processed += o.processed
			result.Errors += o.errors
			for rel, n := range o.relationships {
				result.Relationships[rel] += n
			}
		}

		p.logger.Debug().
			Int("chunk_start", chunkStart).
			Int("processed", result.Processed).
			Int("errors", result.Errors).
			Msg("Chunk complete")

		if result.Processed > 0 && float64(result.Errors)/float64(result.Processed) > p.opts.ErrorThreshold {
			result.Duration = time.Since(start)
			err := &ErrorRateExceededError{Processed: result.Processed, Errors: result.Errors, Threshold: p.opts.ErrorThreshold}
			p.logger.Error().
				Err(err).
				Str("user_id", userID).
				Float64("error_rate", err.Rate()).
				Msg("Aborting ingestion run")
			return result, err
		}
	}

	p.triggerAggregations(ctx, userID, result.Relationships)

	result.Duration = time.Since(start)
	p.logger.Info().
		Str("user_id", userID).
		Int("processed", result.Processed).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Interface("relationships", result.Relationships).
		Msg("Ingestion run complete")

	return result, nil
}

// processMessage validates and redacts once, then fans out to every recipient
func (p *Pipeline) processMessage(ctx context.Context, userID string, msg *models.HistoricalMessage) outcome {
	if err := p.validate(msg); err != nil {
		p.logger.Warn().
			Err(err).
			Str("message_id", msg.MessageID).
			Strs("addresses", msg.AllAddresses()).
			Str("subject", msg.Subject).
			Msg("Skipping invalid message")
		return outcome{processed: 1, errors: 1}
	}

	recipients := msg.Recipients()
	messageID := messageKey(msg)
	redacted := p.redactor.WithNames(msg.ParticipantNames()...).Redact(msg.ReplyText())

	type recipientResult struct {
		relType string
		err     error
	}
	results := make([]recipientResult, len(recipients))

	var wg sync.WaitGroup
	for i, rcpt := range recipients {
		wg.Add(1)
		go func(i int, rcpt models.Address) {
			defer wg.Done()
			relType, err := p.indexRecipient(ctx, userID, messageID, msg, rcpt, redacted)
			results[i] = recipientResult{relType: relType, err: err}
		}(i, rcpt)
	}
	wg.Wait()

	o := outcome{relationships: make(map[string]int)}
	for i, r := range results {
		o.processed++
		if r.err != nil {
			o.errors++
			p.logger.Error().
				Err(r.err).
				Str("message_id", messageID).
				Str("recipient", recipients[i].Email).
				Msg("Failed to index example")
			continue
		}
		o.relationships[r.relType]++
	}
	return o
}

func (p *Pipeline) validate(msg *models.HistoricalMessage) error {
	if msg == nil {
		return errors.New("nil message")
	}
	if p.opts.RequireRawMessage && msg.RawMessage == "" {
		return fmt.Errorf("message %s: %w", msg.MessageID, ErrMissingRawMessage)
	}
	if len(msg.Recipients()) == 0 {
		return fmt.Errorf("message %s: %w", msg.MessageID, ErrNoRecipients)
	}
	return nil
}

// indexRecipient writes the record for one (message, recipient) pair and
// returns the relationship type it was filed under.
func (p *Pipeline) indexRecipient(ctx context.Context, userID, messageID string, msg *models.HistoricalMessage,
	rcpt models.Address, redacted redact.Result) (string, error) {
	features := nlp.Extract(redacted.Text, nlp.Recipient{Email: rcpt.Email, Name: rcpt.Name})

	rel, err := p.resolveRelationship(ctx, userID, messageID, msg, rcpt, features, redacted.Text)
	if err != nil {
		return "", err
	}

	opts := p.retryOptions("embed", messageID, rcpt.Email)
	vector, err := retry.Do(ctx, opts, func(ctx context.Context) ([]float32, error) {
		return p.embedder.Embed(ctx, redacted.Text)
	})
	if err != nil {
		return "", fmt.Errorf("failed to embed reply: %w", err)
	}

	point := vectorindex.Point{
		Vector: vector,
		Record: models.IndexedExampleRecord{
			ID:             models.RecordID(messageID, rcpt.Email),
			MessageID:      messageID,
			UserID:         userID,
			Text:           redacted.Text,
			OriginalText:   msg.RespondedTo,
			RedactedNames:  redacted.NamesFound,
			RedactedEmails: redacted.EmailsFound,
			RecipientEmail: rcpt.Email,
			RecipientName:  rcpt.Name,
			Subject:        msg.Subject,
			SentAt:         msg.SentAt,
			Features:       features,
			Relationship:   rel,
		},
	}

	opts = p.retryOptions("upsert", messageID, rcpt.Email)
	if err := retry.DoErr(ctx, opts, func(ctx context.Context) error {
		return p.index.Upsert(ctx, point)
	}); err != nil {
		return "", fmt.Errorf("failed to index example: %w", err)
	}

	return rel.Type, nil
}

// resolveRelationship prefers the classification carried on the message
func (p *Pipeline) resolveRelationship(ctx context.Context, userID, messageID string, msg *models.HistoricalMessage,
	rcpt models.Address, features models.NLPFeatures, text string) (models.RelationshipClassification, error) {
	if msg.Relationship != nil && msg.Relationship.Type != "" {
		return *msg.Relationship, nil
	}

	req := relationship.Request{
		UserID:         userID,
		RecipientEmail: rcpt.Email,
		Subject:        msg.Subject,
		Hints:          relationship.HintsFrom(features),
	}
	opts := p.retryOptions("detect", messageID, rcpt.Email)
	rel, err := retry.Do(ctx, opts, func(ctx context.Context) (models.RelationshipClassification, error) {
		return p.detector.Detect(ctx, req)
	})
	if err != nil {
		detErr := &DetectionError{
			MessageID: messageID,
			UserID:    userID,
			Recipient: rcpt.Email,
			Addresses: msg.AllAddresses(),
			Subject:   msg.Subject,
			Preview:   preview(text, 50),
			Err:       err,
		}
		p.logger.Error().
			Err(err).
			Str("message_id", messageID).
			Str("user_id", userID).
			Str("recipient", rcpt.Email).
			Str("sender", msg.Sender().Email).
			Strs("addresses", detErr.Addresses).
			Str("subject", msg.Subject).
			Str("preview", detErr.Preview).
			Msg("Relationship detection failed")
		return models.RelationshipClassification{}, detErr
	}
	return rel, nil
}

func (p *Pipeline) retryOptions(op, messageID, recipient string) retry.Options {
	opts := p.opts.Retry
	opts.OnRetry = func(err error, attempt int) {
		p.logger.Warn().
			Err(err).
			Str("operation", op).
			Str("message_id", messageID).
			Str("recipient", recipient).
			Int("attempt", attempt).
			Msg("Retrying")
	}
	return opts
}

// triggerAggregations runs once per relationship type that gained a record
func (p *Pipeline) triggerAggregations(ctx context.Context, userID string, relationships map[string]int) {
	if p.trigger == nil {
		return
	}

	types := make([]string, 0, len(relationships))
	for rel, n := range relationships {
		if n > 0 {
			types = append(types, rel)
		}
	}
	sort.Strings(types)

	for _, rel := range types {
		if err := p.trigger.TriggerAggregation(ctx, userID, rel); err != nil {
			p.logger.Error().
				Err(err).
				Str("user_id", userID).
				Str("relationship", rel).
				Msg("Failed to trigger style aggregation")
		}
	}
}

// messageKey falls back to a content hash for messages without a Message-ID header
func messageKey(msg *models.HistoricalMessage) string {
	if msg.MessageID != "" {
		return msg.MessageID
	}
	sum := sha256.Sum256([]byte(msg.RawMessage + "\x00" + msg.SentAt.UTC().Format(time.RFC3339) + "\x00" + msg.UserReply))
	return "sha256:" + hex.EncodeToString(sum[:16])
}
