package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"tonelearn/internal/models"
)

// MemoryIndex is an in-process Index using exact cosine similarity.
// It backs local development and tests.
type MemoryIndex struct {
	mu         sync.RWMutex
	points     map[string]Point
	dimensions int
}

// NewMemoryIndex creates an empty index. dimensions <= 0 accepts any vector length.
func NewMemoryIndex(dimensions int) *MemoryIndex {
	return &MemoryIndex{points: make(map[string]Point), dimensions: dimensions}
}

func (m *MemoryIndex) Init(context.Context) error { return nil }

func (m *MemoryIndex) Close() error { return nil }

func (m *MemoryIndex) Upsert(ctx context.Context, point Point) error {
	return m.UpsertBatch(ctx, []Point{point})
}

func (m *MemoryIndex) UpsertBatch(_ context.Context, points []Point) error {
	for _, p := range points {
		if m.dimensions > 0 && len(p.Vector) != m.dimensions {
			return ErrDimensionMismatch
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		m.points[p.Record.ID] = Point{Record: p.Record, Vector: vec}
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, query SearchQuery) ([]Hit, error) {
	if query.Filter.UserID == "" {
		return nil, ErrUserRequired
	}

	m.mu.RLock()
	var hits []Hit
	for id, p := range m.points {
		if !matches(p.Record, query.Filter) {
			continue
		}
		score := cosineSimilarity(query.Vector, p.Vector)
		if query.ScoreThreshold != nil && score < float64(*query.ScoreThreshold) {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: score, Record: p.Record})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if query.Limit > 0 && len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}
	return hits, nil
}

func (m *MemoryIndex) ScrollAll(_ context.Context, filter Filter) ([]models.IndexedExampleRecord, error) {
	m.mu.RLock()
	var records []models.IndexedExampleRecord
	for _, p := range m.points {
		if matches(p.Record, filter) {
			records = append(records, p.Record)
		}
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].SentAt.Equal(records[j].SentAt) {
			return records[i].SentAt.Before(records[j].SentAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (m *MemoryIndex) DeleteByUser(_ context.Context, userID string) error {
	if userID == "" {
		return ErrUserRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if p.Record.UserID == userID {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *MemoryIndex) UpdateUsage(_ context.Context, id string, usage models.UsageStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.points[id]
	if !ok {
		return ErrNotFound
	}
	p.Record.Usage = usage
	m.points[id] = p
	return nil
}

// Len reports how many points are stored
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func matches(r models.IndexedExampleRecord, f Filter) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.RecipientEmail != "" && models.NormalizeEmail(r.RecipientEmail) != models.NormalizeEmail(f.RecipientEmail) {
		return false
	}
	if f.ExcludeRecipientEmail != "" && models.NormalizeEmail(r.RecipientEmail) == models.NormalizeEmail(f.ExcludeRecipientEmail) {
		return false
	}
	if f.RelationshipType != "" && r.Relationship.Type != f.RelationshipType {
		return false
	}
	for _, id := range f.ExcludeIDs {
		if id == r.ID {
			return false
		}
	}
	return inRange(r.SentAt, f.DateRange)
}

// cosineSimilarity calculates cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
