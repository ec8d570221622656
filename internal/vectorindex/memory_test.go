package vectorindex

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/models"
)

func record(id, user, recipient, rel string, sentAt time.Time) models.IndexedExampleRecord {
	return models.IndexedExampleRecord{
		ID:             id,
		MessageID:      "msg-" + id,
		UserID:         user,
		Text:           "text " + id,
		RecipientEmail: recipient,
		SentAt:         sentAt,
		Relationship:   models.RelationshipClassification{Type: rel, Confidence: 0.9, DetectionMethod: "test"},
	}
}

func seed(t *testing.T, idx *MemoryIndex) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []Point{
		{Record: record("a", "u1", "Bob@Example.com", "colleague", base), Vector: []float32{1, 0}},
		{Record: record("b", "u1", "bob@example.com", "colleague", base.Add(time.Hour)), Vector: []float32{0.8, 0.2}},
		{Record: record("c", "u1", "amy@home.net", "friend", base.Add(2*time.Hour)), Vector: []float32{0, 1}},
		{Record: record("d", "u2", "bob@example.com", "colleague", base), Vector: []float32{1, 0}},
	}
	require.NoError(t, idx.UpsertBatch(context.Background(), points))
}

func TestMemoryIndex_SearchRanksAndFilters(t *testing.T) {
	idx := NewMemoryIndex(2)
	seed(t, idx)

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{name: "user only", filter: Filter{UserID: "u1"}, wantIDs: []string{"a", "b", "c"}},
		{name: "recipient case-insensitive", filter: Filter{UserID: "u1", RecipientEmail: "BOB@example.com"}, wantIDs: []string{"a", "b"}},
		{name: "relationship", filter: Filter{UserID: "u1", RelationshipType: "friend"}, wantIDs: []string{"c"}},
		{name: "exclude recipient", filter: Filter{UserID: "u1", ExcludeRecipientEmail: "Bob@EXAMPLE.com"}, wantIDs: []string{"c"}},
		{name: "exclude ids", filter: Filter{UserID: "u1", ExcludeIDs: []string{"a"}}, wantIDs: []string{"b", "c"}},
		{
			name: "date range",
			filter: Filter{UserID: "u1", DateRange: &models.DateRange{
				Start: time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC),
			}},
			wantIDs: []string{"b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(context.Background(), SearchQuery{Vector: []float32{1, 0}, Filter: tt.filter, Limit: 10})
			require.NoError(t, err)
			var ids []string
			for _, h := range hits {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMemoryIndex_SearchLimitAndThreshold(t *testing.T) {
	idx := NewMemoryIndex(2)
	seed(t, idx)

	hits, err := idx.Search(context.Background(), SearchQuery{Vector: []float32{1, 0}, Filter: Filter{UserID: "u1"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)

	threshold := float32(0.5)
	hits, err = idx.Search(context.Background(), SearchQuery{Vector: []float32{1, 0}, Filter: Filter{UserID: "u1"}, ScoreThreshold: &threshold})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMemoryIndex_SearchRequiresUser(t *testing.T) {
	idx := NewMemoryIndex(0)
	_, err := idx.Search(context.Background(), SearchQuery{Vector: []float32{1}})
	assert.ErrorIs(t, err, ErrUserRequired)
}

func TestMemoryIndex_UpsertOverwritesAndChecksDimensions(t *testing.T) {
	idx := NewMemoryIndex(2)
	seed(t, idx)
	assert.Equal(t, 4, idx.Len())

	updated := record("a", "u1", "bob@example.com", "friend", time.Now())
	require.NoError(t, idx.Upsert(context.Background(), Point{Record: updated, Vector: []float32{0, 1}}))
	assert.Equal(t, 4, idx.Len())

	err := idx.Upsert(context.Background(), Point{Record: record("z", "u1", "x@y.z", "friend", time.Now()), Vector: []float32{1}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryIndex_ScrollAllSortedBySentAt(t *testing.T) {
	idx := NewMemoryIndex(2)
	seed(t, idx)

	records, err := idx.ScrollAll(context.Background(), Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "c", records[2].ID)
}

func TestMemoryIndex_DeleteByUser(t *testing.T) {
	idx := NewMemoryIndex(2)
	seed(t, idx)

	require.NoError(t, idx.DeleteByUser(context.Background(), "u1"))
	assert.Equal(t, 1, idx.Len())
	assert.ErrorIs(t, idx.DeleteByUser(context.Background(), ""), ErrUserRequired)
}

func TestMemoryIndex_UpdateUsage(t *testing.T) {
	idx := NewMemoryIndex(2)
	seed(t, idx)

	usage := models.UsageStats{FrequencyScore: 0.5, EditCount: 1, Rating: 4, UsedCount: 2}
	require.NoError(t, idx.UpdateUsage(context.Background(), "b", usage))

	records, err := idx.ScrollAll(context.Background(), Filter{UserID: "u1", ExcludeIDs: []string{"a", "c"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, usage, records[0].Usage)

	assert.ErrorIs(t, idx.UpdateUsage(context.Background(), "missing", usage), ErrNotFound)
}

func TestMemoryIndex_ConcurrentUpserts(t *testing.T) {
	idx := NewMemoryIndex(2)
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_ = idx.Upsert(context.Background(), Point{
				Record: record(fmt.Sprintf("p%d", i), "u1", "x@y.z", "friend", time.Now()),
				Vector: []float32{1, 1},
			})
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	assert.Equal(t, 20, idx.Len())
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2}, b: []float32{1, 2}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
