package selector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/models"
	"tonelearn/internal/redact"
	"tonelearn/internal/relationship"
	"tonelearn/internal/retry"
	"tonelearn/internal/vectorindex"
)

type staticEmbedder struct {
	vector []float32
	texts  []string
	err    error
}

func (s *staticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.texts = append(s.texts, text)
	return s.vector, s.err
}

func (s *staticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type staticDetector struct {
	rel models.RelationshipClassification
	err error
}

func (d staticDetector) Detect(context.Context, relationship.Request) (models.RelationshipClassification, error) {
	return d.rel, d.err
}

// scriptedIndex answers searches from a callback and records every query
type scriptedIndex struct {
	vectorindex.Index
	queries []vectorindex.SearchQuery
	search  func(q vectorindex.SearchQuery) ([]vectorindex.Hit, error)
}

func (s *scriptedIndex) Search(_ context.Context, q vectorindex.SearchQuery) ([]vectorindex.Hit, error) {
	s.queries = append(s.queries, q)
	return s.search(q)
}

var colleague = models.RelationshipClassification{Type: models.RelationshipColleague, Confidence: 0.85, DetectionMethod: "domain_match"}

func testOptions() Options {
	return Options{DesiredCount: 25, MaxDirectFraction: 0.6, Retry: retry.Options{MaxAttempts: 1}}
}

// vectorAt returns a unit vector whose cosine with (1,0) decreases as rank grows
func vectorAt(rank int) []float32 {
	angle := float64(rank) * 0.01
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

func seed(t *testing.T, index *vectorindex.MemoryIndex, recipient, relType string, count, rankOffset int) []string {
	t.Helper()
	var ids []string
	for i := 0; i < count; i++ {
		id := models.RecordID(fmt.Sprintf("%s-%d", recipient, i), recipient)
		ids = append(ids, id)
		require.NoError(t, index.Upsert(context.Background(), vectorindex.Point{
			Vector: vectorAt(rankOffset + i),
			Record: models.IndexedExampleRecord{
				ID:             id,
				UserID:         "user-1",
				Text:           fmt.Sprintf("reply %d to %s", i, recipient),
				RecipientEmail: recipient,
				Relationship:   models.RelationshipClassification{Type: relType},
			},
		}))
	}
	return ids
}

func TestSelect_BlendsDirectAndCategory(t *testing.T) {
	index := vectorindex.NewMemoryIndex(2)
	// direct records rank below the category ones so ordering is not a side effect of score
	seed(t, index, "sam@corp.example", models.RelationshipColleague, 50, 40)
	for i := 0; i < 4; i++ {
		seed(t, index, fmt.Sprintf("p%d@corp.example", i), models.RelationshipColleague, 5, i*5)
	}
	seed(t, index, "mum@gmail.com", models.RelationshipFamily, 10, 0)

	s := NewSelector(&staticEmbedder{vector: []float32{1, 0}}, index, staticDetector{rel: colleague}, nil, testOptions(), zerolog.Nop())
	result, err := s.Select(context.Background(), Request{UserID: "user-1", IncomingText: "status?", RecipientEmail: "Sam@Corp.example"})
	require.NoError(t, err)

	require.Len(t, result.Examples, 25)
	assert.Equal(t, colleague, result.Relationship)

	direct, category := 0, 0
	seenCategory := false
	ids := map[string]bool{}
	for _, ex := range result.Examples {
		assert.False(t, ids[ex.ID], "duplicate id %s", ex.ID)
		ids[ex.ID] = true
		if ex.Direct {
			assert.False(t, seenCategory, "direct example after a category example")
			assert.Equal(t, "sam@corp.example", ex.Metadata.RecipientEmail)
			direct++
			continue
		}
		seenCategory = true
		assert.NotEqual(t, "sam@corp.example", ex.Metadata.RecipientEmail)
		assert.Equal(t, models.RelationshipColleague, ex.Metadata.Relationship.Type)
		category++
	}
	assert.Equal(t, 15, direct)
	assert.Equal(t, 10, category)

	assert.Equal(t, models.SelectionStats{
		TotalCandidates:      50 + 55,
		RelationshipMatches:  25,
		DirectCorrespondence: 15,
	}, result.Stats)
}

func TestSelect_RankedWithinPhase(t *testing.T) {
	index := vectorindex.NewMemoryIndex(2)
	seed(t, index, "sam@corp.example", models.RelationshipColleague, 8, 0)
	seed(t, index, "lee@corp.example", models.RelationshipColleague, 8, 0)

	s := NewSelector(&staticEmbedder{vector: []float32{1, 0}}, index, staticDetector{rel: colleague}, nil,
		Options{DesiredCount: 10, MaxDirectFraction: 0.5, Retry: retry.Options{MaxAttempts: 1}}, zerolog.Nop())
	result, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "sam@corp.example"})
	require.NoError(t, err)
	require.Len(t, result.Examples, 10)

	for i := 1; i < 5; i++ {
		assert.GreaterOrEqual(t, result.Examples[i-1].Score, result.Examples[i].Score)
	}
	for i := 6; i < 10; i++ {
		assert.GreaterOrEqual(t, result.Examples[i-1].Score, result.Examples[i].Score)
	}
	assert.True(t, result.Examples[4].Direct)
	assert.False(t, result.Examples[5].Direct)
	assert.Equal(t, "reply 0 to lee@corp.example", result.Examples[5].Text)
}

func TestSelect_FewDirectFillsFromCategory(t *testing.T) {
	index := vectorindex.NewMemoryIndex(2)
	seed(t, index, "sam@corp.example", models.RelationshipColleague, 3, 0)
	seed(t, index, "lee@corp.example", models.RelationshipColleague, 40, 0)

	s := NewSelector(&staticEmbedder{vector: []float32{1, 0}}, index, staticDetector{rel: colleague}, nil, testOptions(), zerolog.Nop())
	result, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "sam@corp.example"})
	require.NoError(t, err)

	assert.Len(t, result.Examples, 25)
	assert.Equal(t, 3, result.Stats.DirectCorrespondence)
}

func TestSelect_DesiredCountOverride(t *testing.T) {
	index := vectorindex.NewMemoryIndex(2)
	seed(t, index, "sam@corp.example", models.RelationshipColleague, 20, 0)
	seed(t, index, "lee@corp.example", models.RelationshipColleague, 20, 0)

	s := NewSelector(&staticEmbedder{vector: []float32{1, 0}}, index, staticDetector{rel: colleague}, nil, testOptions(), zerolog.Nop())
	result, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "sam@corp.example", DesiredCount: 5})
	require.NoError(t, err)

	assert.Len(t, result.Examples, 5)
	assert.Equal(t, 3, result.Stats.DirectCorrespondence)
}

func TestSelect_QuotaInvariant(t *testing.T) {
	index := vectorindex.NewMemoryIndex(2)
	seed(t, index, "sam@corp.example", models.RelationshipColleague, 30, 0)
	seed(t, index, "lee@corp.example", models.RelationshipColleague, 30, 0)

	tests := []struct {
		desired  int
		fraction float64
	}{
		{25, 0.6}, {10, 0.0}, {10, 1.0}, {7, 0.33}, {1, 0.6}, {40, 0.25},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%.2f", tt.desired, tt.fraction), func(t *testing.T) {
			s := NewSelector(&staticEmbedder{vector: []float32{1, 0}}, index, staticDetector{rel: colleague}, nil,
				Options{DesiredCount: tt.desired, MaxDirectFraction: tt.fraction, Retry: retry.Options{MaxAttempts: 1}}, zerolog.Nop())
			result, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "sam@corp.example"})
			require.NoError(t, err)

			assert.LessOrEqual(t, len(result.Examples), tt.desired)
			direct := 0
			for _, ex := range result.Examples {
				if ex.Metadata.RecipientEmail == "sam@corp.example" {
					direct++
				}
			}
			assert.LessOrEqual(t, direct, MaxDirect(tt.desired, tt.fraction))
		})
	}
}

func TestSelect_CategoryPhaseNotCrowdedOutByRecipient(t *testing.T) {
	index := vectorindex.NewMemoryIndex(2)
	// 150 replies to sam outrank every other colleague, more than one category search returns
	seed(t, index, "sam@corp.example", models.RelationshipColleague, 150, 0)
	others := map[string]bool{}
	for i := 0; i < 4; i++ {
		for _, id := range seed(t, index, fmt.Sprintf("p%d@corp.example", i), models.RelationshipColleague, 5, 150+i*5) {
			others[id] = true
		}
	}

	s := NewSelector(&staticEmbedder{vector: []float32{1, 0}}, index, staticDetector{rel: colleague}, nil, testOptions(), zerolog.Nop())
	result, err := s.Select(context.Background(), Request{UserID: "user-1", IncomingText: "status?", RecipientEmail: "sam@corp.example"})
	require.NoError(t, err)

	require.Len(t, result.Examples, 25)
	assert.Equal(t, 15, result.Stats.DirectCorrespondence)
	for _, ex := range result.Examples[15:] {
		assert.False(t, ex.Direct)
		assert.True(t, others[ex.ID], "category slot filled by %s", ex.Metadata.RecipientEmail)
	}
}

func TestSelect_DedupsWhenIndexIgnoresExclusions(t *testing.T) {
	hit := func(id, recipient string, score float64) vectorindex.Hit {
		return vectorindex.Hit{ID: id, Score: score, Record: models.IndexedExampleRecord{ID: id, RecipientEmail: recipient,
			Relationship: colleague}}
	}
	index := &scriptedIndex{search: func(q vectorindex.SearchQuery) ([]vectorindex.Hit, error) {
		if q.Filter.RecipientEmail != "" {
			return []vectorindex.Hit{hit("a", "sam@corp.example", 0.9), hit("b", "sam@corp.example", 0.8)}, nil
		}
		return []vectorindex.Hit{hit("a", "other@corp.example", 0.9), hit("c", "lee@corp.example", 0.7), hit("c", "lee@corp.example", 0.7)}, nil
	}}

	s := NewSelector(&staticEmbedder{vector: []float32{1}}, index, staticDetector{rel: colleague}, nil,
		Options{DesiredCount: 4, MaxDirectFraction: 0.5, Retry: retry.Options{MaxAttempts: 1}}, zerolog.Nop())
	result, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "sam@corp.example"})
	require.NoError(t, err)

	var ids []string
	for _, ex := range result.Examples {
		ids = append(ids, ex.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	require.Len(t, index.queries, 2)
	assert.Equal(t, directCandidateLimit, index.queries[0].Limit)
	assert.Nil(t, index.queries[0].ScoreThreshold)
	assert.Equal(t, categoryCandidateLimit, index.queries[1].Limit)
	assert.Equal(t, []string{"a", "b"}, index.queries[1].Filter.ExcludeIDs)
	assert.Equal(t, "sam@corp.example", index.queries[1].Filter.ExcludeRecipientEmail)
	assert.Equal(t, models.RelationshipColleague, index.queries[1].Filter.RelationshipType)
}

func TestSelect_SkipsCategoryPhaseWhenFull(t *testing.T) {
	index := &scriptedIndex{search: func(q vectorindex.SearchQuery) ([]vectorindex.Hit, error) {
		return []vectorindex.Hit{{ID: "a", Score: 1}, {ID: "b", Score: 0.5}}, nil
	}}
	s := NewSelector(&staticEmbedder{vector: []float32{1}}, index, staticDetector{rel: colleague}, nil,
		Options{DesiredCount: 2, MaxDirectFraction: 1, Retry: retry.Options{MaxAttempts: 1}}, zerolog.Nop())

	result, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "sam@corp.example"})
	require.NoError(t, err)
	assert.Len(t, result.Examples, 2)
	assert.Len(t, index.queries, 1)
}

func TestSelect_Failures(t *testing.T) {
	boom := errors.New("boom")
	okIndex := func() *scriptedIndex {
		return &scriptedIndex{search: func(vectorindex.SearchQuery) ([]vectorindex.Hit, error) { return nil, nil }}
	}

	tests := []struct {
		name     string
		req      Request
		embedder *staticEmbedder
		detector staticDetector
		index    *scriptedIndex
		wantErr  error
	}{
		{
			name:    "missing user",
			req:     Request{RecipientEmail: "a@b.example"},
			wantErr: ErrUserRequired,
		},
		{
			name:    "missing recipient",
			req:     Request{UserID: "user-1", RecipientEmail: "  "},
			wantErr: ErrRecipientRequired,
		},
		{
			name:     "detector fails",
			req:      Request{UserID: "user-1", RecipientEmail: "a@b.example"},
			detector: staticDetector{err: boom},
			wantErr:  boom,
		},
		{
			name:     "embedder fails",
			req:      Request{UserID: "user-1", RecipientEmail: "a@b.example"},
			embedder: &staticEmbedder{err: boom},
			detector: staticDetector{rel: colleague},
			wantErr:  boom,
		},
		{
			name:     "search fails",
			req:      Request{UserID: "user-1", RecipientEmail: "a@b.example"},
			detector: staticDetector{rel: colleague},
			index: &scriptedIndex{search: func(vectorindex.SearchQuery) ([]vectorindex.Hit, error) {
				return nil, boom
			}},
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := tt.embedder
			if embedder == nil {
				embedder = &staticEmbedder{vector: []float32{1}}
			}
			index := tt.index
			if index == nil {
				index = okIndex()
			}
			s := NewSelector(embedder, index, tt.detector, nil, testOptions(), zerolog.Nop())

			result, err := s.Select(context.Background(), tt.req)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSelect_RetriesSearch(t *testing.T) {
	calls := 0
	index := &scriptedIndex{search: func(vectorindex.SearchQuery) ([]vectorindex.Hit, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("unavailable")
		}
		return nil, nil
	}}
	opts := testOptions()
	opts.Retry = retry.Options{MaxAttempts: 3, InitialDelay: 0, BackoffFactor: 1}
	s := NewSelector(&staticEmbedder{vector: []float32{1}}, index, staticDetector{rel: colleague}, nil, opts, zerolog.Nop())

	result, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "a@b.example"})
	require.NoError(t, err)
	assert.Empty(t, result.Examples)
	assert.Equal(t, 3, calls) // one retried direct search, one category search
}

func TestSelect_RedactsIncomingText(t *testing.T) {
	embedder := &staticEmbedder{vector: []float32{1}}
	index := &scriptedIndex{search: func(vectorindex.SearchQuery) ([]vectorindex.Hit, error) { return nil, nil }}
	s := NewSelector(embedder, index, staticDetector{rel: colleague}, redact.New("Priya"), testOptions(), zerolog.Nop())

	_, err := s.Select(context.Background(), Request{UserID: "user-1", RecipientEmail: "a@b.example",
		IncomingText: "Priya asked me to email sam@corp.example"})
	require.NoError(t, err)
	require.Len(t, embedder.texts, 1)
	assert.Equal(t, "[NAME] asked me to email [EMAIL]", embedder.texts[0])
}

func TestMaxDirect(t *testing.T) {
	tests := []struct {
		desired  int
		fraction float64
		want     int
	}{
		{25, 0.6, 15},
		{10, 0.33, 3},
		{7, 0.5, 3},
		{1, 0.6, 0},
		{10, 1, 10},
		{10, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxDirect(tt.desired, tt.fraction))
	}
}
