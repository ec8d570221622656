package models

import "time"

// Preference types a WritingPatterns profile is persisted under
const (
	PreferenceAggregate = "aggregate"
	PreferenceCategory  = "category"

	AggregateTarget = "aggregate"
)

// SentenceDistribution is the share of short, medium and long sentences (percent)
type SentenceDistribution struct {
	Short  float64 `json:"short"`
	Medium float64 `json:"medium"`
	Long   float64 `json:"long"`
}

// SentenceStats describes sentence length in words
type SentenceStats struct {
	AvgLength    float64              `json:"avgLength"`
	MinLength    float64              `json:"minLength"`
	MaxLength    float64              `json:"maxLength"`
	StdDeviation float64              `json:"stdDeviation"`
	Distribution SentenceDistribution `json:"distribution"`
	Examples     []string             `json:"examples"`
}

// ParagraphPattern is one paragraph structure and how often it is used
type ParagraphPattern struct {
	Type        string  `json:"type"`
	Percentage  float64 `json:"percentage"`
	Description string  `json:"description,omitempty"`
}

// FrequencyPattern is an opening line with its frequency and an optional note
type FrequencyPattern struct {
	Pattern   string  `json:"pattern"`
	Frequency float64 `json:"frequency"`
	Notes     string  `json:"notes,omitempty"`
}

// PhrasePattern is a valediction or typed sign-off name with its share of emails
type PhrasePattern struct {
	Phrase     string  `json:"phrase"`
	Percentage float64 `json:"percentage"`
}

// NegativePattern is something the writer never does
type NegativePattern struct {
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Examples    []string `json:"examples,omitempty"`
}

// ResponsePatterns captures response timing and question handling
type ResponsePatterns struct {
	Immediate        float64 `json:"immediate"`
	Contemplative    float64 `json:"contemplative"`
	QuestionHandling string  `json:"questionHandling"`
}

// UniqueExpression is an idiom the writer favours
type UniqueExpression struct {
	Phrase       string  `json:"phrase"`
	Context      string  `json:"context"`
	Frequency    float64 `json:"frequency"`
	ContextCount int     `json:"contextCount,omitempty"`
}

// WritingPatterns is the canonical style profile
type WritingPatterns struct {
	SentenceStats     SentenceStats      `json:"sentencePatterns"`
	ParagraphPatterns []ParagraphPattern `json:"paragraphPatterns"`
	OpeningPatterns   []FrequencyPattern `json:"openingPatterns"`
	Valedictions      []PhrasePattern    `json:"valediction"`
	TypedNames        []PhrasePattern    `json:"typedName"`
	NegativePatterns  []NegativePattern  `json:"negativePatterns"`
	ResponsePatterns  ResponsePatterns   `json:"responsePatterns"`
	UniqueExpressions []UniqueExpression `json:"uniqueExpressions"`
}

// DateRange is the first and last message date of a corpus slice
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BatchPatterns is one batch's LLM observations plus its merge weight
type BatchPatterns struct {
	Patterns   WritingPatterns `json:"patterns"`
	EmailCount int             `json:"emailCount"`
	DateRange  DateRange       `json:"dateRange"`
}

// StoredProfile is a persisted WritingPatterns row
type StoredProfile struct {
	UserID           string          `db:"user_id" json:"user_id"`
	PreferenceType   string          `db:"preference_type" json:"preference_type"`
	TargetIdentifier string          `db:"target_identifier" json:"target_identifier"`
	Patterns         WritingPatterns `db:"-" json:"patterns"`
	EmailsAnalyzed   int             `db:"emails_analyzed" json:"emails_analyzed"`
	BatchCount       int             `db:"batch_count" json:"batch_count"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
