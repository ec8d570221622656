package models

import (
	"time"

	"github.com/google/uuid"
)

// Relationship type labels produced by the detector
const (
	RelationshipSpouse    = "spouse"
	RelationshipFamily    = "family"
	RelationshipFriend    = "friend"
	RelationshipColleague = "colleague"
	RelationshipExternal  = "external"
)

// ValidRelationshipType reports whether t is one of the detector's labels
func ValidRelationshipType(t string) bool {
	switch t {
	case RelationshipSpouse, RelationshipFamily, RelationshipFriend, RelationshipColleague, RelationshipExternal:
		return true
	}
	return false
}

// recordNamespace scopes deterministic record ids
var recordNamespace = uuid.MustParse("6f1c2a8e-3b7d-5e4f-9a10-2c8b7d6e5f40")

// RelationshipClassification describes the user's relationship to a recipient
type RelationshipClassification struct {
	Type            string  `json:"type"`
	Confidence      float64 `json:"confidence"`
	DetectionMethod string  `json:"detection_method"`
}

// Sentiment is the dominant polarity of a text
type Sentiment struct {
	Primary string  `json:"primary"` // positive, negative, neutral
	Score   float64 `json:"score"`   // -1..1
}

// Urgency is how time-pressing a text reads
type Urgency struct {
	Level string  `json:"level"` // low, medium, high
	Score float64 `json:"score"` // 0..1
}

// NLPFeatures is the feature bag extracted from a redacted reply
type NLPFeatures struct {
	WordCount             int       `json:"word_count"`
	SentenceCount         int       `json:"sentence_count"`
	FormalityScore        float64   `json:"formality_score"`
	Sentiment             Sentiment `json:"sentiment"`
	Urgency               Urgency   `json:"urgency"`
	Language              string    `json:"language"`
	IntimacyMarkers       []string  `json:"intimacy_markers,omitempty"`
	ProfessionalMarkers   []string  `json:"professional_markers,omitempty"`
	RecipientDomain       string    `json:"recipient_domain,omitempty"`
	PersonalDomain        bool      `json:"personal_domain"`
	GreetsRecipientByName bool      `json:"greets_recipient_by_name"`
}

// UsageStats are counters updated after a generated draft is used
type UsageStats struct {
	FrequencyScore float64 `json:"frequency_score"`
	EditCount      int     `json:"edit_count"`
	Rating         float64 `json:"rating"`
	UsedCount      int     `json:"used_count"`
}

// IndexedExampleRecord is one message as observed from one recipient's perspective
type IndexedExampleRecord struct {
	ID             string                     `json:"id"`
	MessageID      string                     `json:"message_id"`
	UserID         string                     `json:"user_id"`
	Text           string                     `json:"text"`          // redacted authored reply
	OriginalText   string                     `json:"original_text"` // quoted content, display only
	RedactedNames  []string                   `json:"redacted_names,omitempty"`
	RedactedEmails []string                   `json:"redacted_emails,omitempty"`
	RecipientEmail string                     `json:"recipient_email"`
	RecipientName  string                     `json:"recipient_name,omitempty"`
	Subject        string                     `json:"subject"`
	SentAt         time.Time                  `json:"sent_at"`
	Features       NLPFeatures                `json:"features"`
	Relationship   RelationshipClassification `json:"relationship"`
	Usage          UsageStats                 `json:"usage"`
}

// RecordID derives the stable id of the (message, recipient) pair so that
// re-ingesting the same message overwrites rather than duplicates.
func RecordID(messageID, recipientEmail string) string {
	key := messageID + "\x00" + NormalizeEmail(recipientEmail)
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

// SelectedExample is one retrieved past reply, never persisted
type SelectedExample struct {
	ID       string               `json:"id"`
	Text     string               `json:"text"`
	Metadata IndexedExampleRecord `json:"metadata"`
	Score    float64              `json:"score"`
	Direct   bool                 `json:"direct"`
}

// SelectionStats summarises a retrieval call
type SelectionStats struct {
	TotalCandidates      int `json:"total_candidates"`
	RelationshipMatches  int `json:"relationship_matches"`
	DirectCorrespondence int `json:"direct_correspondence"`
}

// ExampleSelectionResult is handed to prompt construction
type ExampleSelectionResult struct {
	Relationship RelationshipClassification `json:"relationship"`
	Examples     []SelectedExample          `json:"examples"`
	Stats        SelectionStats             `json:"stats"`
}
