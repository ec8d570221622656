package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tonelearn/internal/database"
	"tonelearn/internal/models"
)

// EventType constants for tracking different events
const (
	EventIngestion       = "ingestion"
	EventSelection       = "selection"
	EventPatternAnalysis = "pattern_analysis"
	EventUsageUpdate     = "usage_update"
	EventPurge           = "purge"
)

// Period constants for analytics queries
const (
	PeriodToday      = "today"
	PeriodYesterday  = "yesterday"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

// Event is one operation to record
type Event struct {
	Type     string
	UserID   string
	Count    int
	Errors   int
	Duration time.Duration
	Provider string
	Metadata map[string]interface{}
}

// Service handles analytics tracking and retrieval
type Service struct {
	writeClient *database.WriteClient
	logger      zerolog.Logger
	now         func() time.Time
	pending     sync.WaitGroup
}

// trackTimeout bounds a background write once the request is gone
const trackTimeout = 5 * time.Second

// NewService creates a new analytics service
func NewService(writeClient *database.WriteClient, logger zerolog.Logger) (*Service, error) {
	if writeClient == nil {
		return nil, fmt.Errorf("write client is required for analytics service")
	}

	return &Service{
		writeClient: writeClient,
		logger:      logger.With().Str("component", "analytics").Logger(),
		now:         time.Now,
	}, nil
}

// Track records an event
func (s *Service) Track(ctx context.Context, e Event) error {
	var metadataJSON *string
	if e.Metadata != nil {
		if jsonBytes, err := json.Marshal(e.Metadata); err == nil {
			str := string(jsonBytes)
			metadataJSON = &str
		}
	}

	query := `INSERT INTO engine_events (event_type, user_id, count, errors, duration_ms, provider, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.writeClient.ExecuteWriteQuery(ctx, query,
		e.Type, e.UserID, e.Count, e.Errors, e.Duration.Milliseconds(), e.Provider, metadataJSON, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}
	return nil
}

// TrackAsync records an event in the background and only logs a failure.
// The write outlives ctx's cancellation so a finished request still gets counted.
func (s *Service) TrackAsync(ctx context.Context, e Event) {
	if s == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackTimeout)
		defer cancel()
		if err := s.Track(ctx, e); err != nil {
			s.logger.Warn().Err(err).Str("event_type", e.Type).Msg("Failed to track event")
		}
	}()
}

// Wait blocks until every background write has finished
func (s *Service) Wait() {
	if s == nil {
		return
	}
	s.pending.Wait()
}

// PeriodRange resolves a period name; unknown names fall back to today
func PeriodRange(period string, now time.Time) (string, time.Time, time.Time) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodYesterday:
		return period, midnight.AddDate(0, 0, -1), midnight
	case PeriodLast7Days:
		return period, now.AddDate(0, 0, -7), now
	case PeriodLast30Days:
		return period, now.AddDate(0, 0, -30), now
	default:
		return PeriodToday, midnight, now
	}
}

// GetSummary retrieves analytics summary for a time period
func (s *Service) GetSummary(ctx context.Context, period string) (*models.AnalyticsSummary, error) {
	period, startDate, endDate := PeriodRange(period, s.now())

	summary := &models.AnalyticsSummary{
		Period:    period,
		StartDate: startDate,
		EndDate:   endDate,
	}

	query := `
		SELECT event_type,
			COUNT(*) AS events,
			COALESCE(SUM(count), 0) AS total_count,
			COALESCE(SUM(errors), 0) AS total_errors,
			COALESCE(AVG(duration_ms), 0) AS avg_duration_ms
		FROM engine_events
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY event_type
		ORDER BY event_type
	`
	if err := database.ExecuteReadOnlyQuery(ctx, s.writeClient.GetDB(), &summary.Events, query, startDate, endDate); err != nil {
		return nil, fmt.Errorf("failed to get analytics summary: %w", err)
	}

	for _, e := range summary.Events {
		switch e.EventType {
		case EventIngestion:
			summary.ExamplesIndexed = e.TotalCount - e.TotalErrors
			summary.IngestionErrors = e.TotalErrors
		case EventSelection:
			summary.Selections = e.Events
		case EventPatternAnalysis:
			summary.ProfilesComputed = e.Events
		}
	}

	return summary, nil
}
