// Package vectorindex stores indexed example records next to their embeddings
// and answers filtered similarity queries over them.
package vectorindex

import (
	"context"
	"errors"
	"time"

	"tonelearn/internal/models"
)

var (
	// ErrUserRequired is returned when a query or purge is not scoped to a user
	ErrUserRequired = errors.New("user id is required")
	// ErrNotFound is returned when a point id does not exist
	ErrNotFound = errors.New("point not found")
	// ErrDimensionMismatch is returned when a vector does not fit the index
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Point is one record with the vector it is searchable by
type Point struct {
	Record models.IndexedExampleRecord
	Vector []float32
}

// Filter narrows a search or scroll. Empty fields do not filter.
type Filter struct {
	UserID           string
	RelationshipType string
	RecipientEmail   string
	// ExcludeRecipientEmail drops records addressed to this recipient
	ExcludeRecipientEmail string
	ExcludeIDs            []string
	DateRange             *models.DateRange
}

// SearchQuery is a similarity search scoped by Filter
type SearchQuery struct {
	Vector         []float32
	Filter         Filter
	Limit          int
	ScoreThreshold *float32 // nil means unfiltered
}

// Hit is one ranked search result
type Hit struct {
	ID     string
	Score  float64
	Record models.IndexedExampleRecord
}

// Index is the similarity index the engine writes to and reads from.
// Search returns hits ranked by score, highest first.
type Index interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, point Point) error
	UpsertBatch(ctx context.Context, points []Point) error
	Search(ctx context.Context, query SearchQuery) ([]Hit, error)
	ScrollAll(ctx context.Context, filter Filter) ([]models.IndexedExampleRecord, error)
	DeleteByUser(ctx context.Context, userID string) error
	UpdateUsage(ctx context.Context, id string, usage models.UsageStats) error
	Close() error
}

// inRange reports whether t falls inside the inclusive range r
func inRange(t time.Time, r *models.DateRange) bool {
	if r == nil {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}
