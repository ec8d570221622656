package vectorindex

import (
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/models"
)

func TestBuildFilter(t *testing.T) {
	start := time.Unix(1700000000, 0)
	f := buildFilter(Filter{
		UserID:           "u1",
		RecipientEmail:   "Bob@Example.com",
		RelationshipType: "colleague",
		ExcludeIDs:       []string{"6f1c2a8e-3b7d-5e4f-9a10-2c8b7d6e5f40"},
		DateRange:        &models.DateRange{Start: start},

		ExcludeRecipientEmail: "Sam@Corp.example",
	})

	require.Len(t, f.GetMust(), 4)
	assert.Equal(t, fieldUserID, f.GetMust()[0].GetField().GetKey())
	assert.Equal(t, "u1", f.GetMust()[0].GetField().GetMatch().GetKeyword())
	assert.Equal(t, "bob@example.com", f.GetMust()[1].GetField().GetMatch().GetKeyword())
	assert.Equal(t, "colleague", f.GetMust()[2].GetField().GetMatch().GetKeyword())

	rng := f.GetMust()[3].GetField().GetRange()
	require.NotNil(t, rng.Gte)
	assert.Equal(t, float64(start.Unix()), *rng.Gte)
	assert.Nil(t, rng.Lte)

	require.Len(t, f.GetMustNot(), 2)
	assert.Equal(t, fieldRecipientEmail, f.GetMustNot()[0].GetField().GetKey())
	assert.Equal(t, "sam@corp.example", f.GetMustNot()[0].GetField().GetMatch().GetKeyword())
	assert.Len(t, f.GetMustNot()[1].GetHasId().GetHasId(), 1)
}

func TestBuildFilter_Empty(t *testing.T) {
	f := buildFilter(Filter{})
	assert.Empty(t, f.GetMust())
	assert.Empty(t, f.GetMustNot())
}

func TestPayloadRoundTrip(t *testing.T) {
	sentAt := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	in := models.IndexedExampleRecord{
		ID:             "6f1c2a8e-3b7d-5e4f-9a10-2c8b7d6e5f40",
		MessageID:      "<m1@example.com>",
		UserID:         "u1",
		Text:           "Thanks [NAME], see you soon",
		OriginalText:   "Are we still on?",
		RedactedNames:  []string{"Dana"},
		RecipientEmail: "Dana@Example.com",
		Subject:        "Lunch",
		SentAt:         sentAt,
		Features: models.NLPFeatures{
			WordCount:      5,
			SentenceCount:  1,
			FormalityScore: 0.4,
			Sentiment:      models.Sentiment{Primary: "positive", Score: 0.5},
			Urgency:        models.Urgency{Level: "low"},
			Language:       "en",
		},
		Relationship: models.RelationshipClassification{Type: "friend", Confidence: 0.7, DetectionMethod: "domain"},
		Usage:        models.UsageStats{UsedCount: 3, Rating: 4.5},
	}

	payload, err := encodePayload(in)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", payload[fieldRecipientEmail].GetStringValue())
	assert.Equal(t, "friend", payload[fieldRelationshipType].GetStringValue())
	assert.Equal(t, float64(sentAt.Unix()), payload[fieldSentAtUnix].GetDoubleValue())

	out, err := decodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, in.Features, out.Features)
	assert.Equal(t, in.Relationship, out.Relationship)
	assert.Equal(t, in.Usage, out.Usage)
	assert.Equal(t, in.RedactedNames, out.RedactedNames)
	assert.True(t, in.SentAt.Equal(out.SentAt))
	assert.Equal(t, "dana@example.com", out.RecipientEmail)
}

func TestFromValue(t *testing.T) {
	v := qdrant.NewValueFromList(qdrant.NewValueString("a"), qdrant.NewValueInt(2), qdrant.NewValueBool(true))
	assert.Equal(t, []any{"a", int64(2), true}, fromValue(v))
	assert.Nil(t, fromValue(qdrant.NewValueNull()))
}
