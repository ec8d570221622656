package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tonelearn/internal/models"
	"tonelearn/internal/patterns"
)

const (
	// SubjectAggregationRequested carries AggregationRequest messages
	SubjectAggregationRequested = "tonelearn.aggregation.requested"
	// WorkerQueue is the queue group aggregation workers join
	WorkerQueue = "tonelearn-aggregation-workers"
)

// ErrInvalidRequest is returned for messages without a user
var ErrInvalidRequest = errors.New("invalid aggregation request")

// AggregationRequest asks a worker to rebuild one profile
type AggregationRequest struct {
	UserID           string    `json:"user_id"`
	RelationshipType string    `json:"relationship_type"` // empty or "aggregate" for the aggregate profile
	RequestedAt      time.Time `json:"requested_at"`
}

// Bus is the publishing half of Client
type Bus interface {
	Publish(subject string, data any) error
}

// Publisher queues aggregation requests instead of running them inline
type Publisher struct {
	bus    Bus
	logger zerolog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher on bus
func NewPublisher(bus Bus, logger zerolog.Logger) *Publisher {
	return &Publisher{
		bus:    bus,
		logger: logger.With().Str("component", "aggregation_publisher").Logger(),
		now:    time.Now,
	}
}

// TriggerAggregation publishes a request for the (user, relationship type) profile
func (p *Publisher) TriggerAggregation(_ context.Context, userID, relationshipType string) error {
	if userID == "" {
		return ErrInvalidRequest
	}

	req := AggregationRequest{
		UserID:           userID,
		RelationshipType: relationshipType,
		RequestedAt:      p.now().UTC(),
	}
	if err := p.bus.Publish(SubjectAggregationRequested, req); err != nil {
		return fmt.Errorf("publish aggregation request: %w", err)
	}

	p.logger.Debug().
		Str("user_id", userID).
		Str("relationship", relationshipType).
		Msg("Queued aggregation")
	return nil
}

// Recomputer rebuilds a stored profile
type Recomputer interface {
	Recompute(ctx context.Context, userID, target string) (*models.StoredProfile, error)
}

// Subscriber is the consuming half of Client
type Subscriber interface {
	QueueSubscribe(subject, queue string, handler func(subject string, data []byte)) error
}

// Worker consumes aggregation requests and runs the analyzer
type Worker struct {
	recomputer Recomputer
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewWorker creates a worker. timeout bounds a single recomputation; zero means 10 minutes.
func NewWorker(recomputer Recomputer, timeout time.Duration, logger zerolog.Logger) *Worker {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Worker{
		recomputer: recomputer,
		timeout:    timeout,
		logger:     logger.With().Str("component", "aggregation_worker").Logger(),
	}
}

// Start subscribes the worker to the request subject. Handlers run under ctx.
func (w *Worker) Start(ctx context.Context, sub Subscriber) error {
	return sub.QueueSubscribe(SubjectAggregationRequested, WorkerQueue, func(subject string, data []byte) {
		if err := w.Handle(ctx, data); err != nil {
			w.logger.Error().Err(err).Str("subject", subject).Msg("Aggregation request failed")
		}
	})
}

// Handle processes one encoded AggregationRequest
func (w *Worker) Handle(ctx context.Context, data []byte) error {
	var req AggregationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.UserID == "" {
		return ErrInvalidRequest
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	profile, err := w.recomputer.Recompute(ctx, req.UserID, req.RelationshipType)
	if errors.Is(err, patterns.ErrNoExamples) {
		w.logger.Debug().Str("user_id", req.UserID).Str("relationship", req.RelationshipType).Msg("Nothing to aggregate")
		return nil
	}
	if err != nil {
		return fmt.Errorf("recompute %s/%s: %w", req.UserID, req.RelationshipType, err)
	}

	w.logger.Info().
		Str("user_id", req.UserID).
		Str("target", profile.TargetIdentifier).
		Int("emails", profile.EmailsAnalyzed).
		Dur("duration", time.Since(start)).
		Msg("Profile recomputed")
	return nil
}
