package models

import "time"

// EngineEvent is one tracked engine operation
type EngineEvent struct {
	ID         int64     `db:"id" json:"id"`
	EventType  string    `db:"event_type" json:"event_type"` // ingestion, selection, pattern_analysis, usage_update, purge
	UserID     string    `db:"user_id" json:"user_id"`
	Count      int       `db:"count" json:"count"`
	Errors     int       `db:"errors" json:"errors"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
	Provider   string    `db:"provider" json:"provider,omitempty"`
	Metadata   *string   `db:"metadata" json:"metadata,omitempty"` // JSON metadata
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EventTotals aggregates one event type over a period
type EventTotals struct {
	EventType     string  `db:"event_type" json:"event_type"`
	Events        int     `db:"events" json:"events"`
	TotalCount    int     `db:"total_count" json:"total_count"`
	TotalErrors   int     `db:"total_errors" json:"total_errors"`
	AvgDurationMs float64 `db:"avg_duration_ms" json:"avg_duration_ms"`
}

// AnalyticsSummary represents aggregated analytics for a time period
type AnalyticsSummary struct {
	Period    string        `json:"period"` // "today", "yesterday", "last_7_days", "last_30_days"
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	Events    []EventTotals `json:"events"`
	// Convenience totals
	ExamplesIndexed  int `json:"examples_indexed"`
	IngestionErrors  int `json:"ingestion_errors"`
	Selections       int `json:"selections"`
	ProfilesComputed int `json:"profiles_computed"`
}

// AnalyticsResponse represents the API response for analytics
type AnalyticsResponse struct {
	Success bool              `json:"success"`
	Summary *AnalyticsSummary `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty"`
}
