package models

import "time"

// HealthResponse represents a basic health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// DBHealthResponse represents a dependency health check response
type DBHealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// ErrorResponse is returned by every failing API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// IngestResponse reports an ingestion run
type IngestResponse struct {
	Processed    int            `json:"processed"`
	Errors       int            `json:"errors"`
	DurationMs   int64          `json:"duration_ms"`
	Relationship map[string]int `json:"relationship_distribution"`
	Aborted      bool           `json:"aborted,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// SelectExamplesRequest asks for style examples for an incoming message
type SelectExamplesRequest struct {
	IncomingText   string `json:"incoming_text"`
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject,omitempty"`
	DesiredCount   int    `json:"desired_count,omitempty"`
}

// AnalyzePatternsRequest triggers profile computation
type AnalyzePatternsRequest struct {
	RelationshipType string `json:"relationship_type,omitempty"` // empty means aggregate
}

// UsageUpdateRequest reports how a drafted reply was used
type UsageUpdateRequest struct {
	UsedCount int     `json:"used_count"`
	EditCount int     `json:"edit_count"`
	Rating    float64 `json:"rating"`
}

// AccountRequest registers the user's own mailbox
type AccountRequest struct {
	Email    string `json:"email"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// RelationshipRequest records how the user classifies a contact
type RelationshipRequest struct {
	RecipientEmail   string `json:"recipient_email"`
	RelationshipType string `json:"relationship_type"`
}

// IngestMessage is one sent message in wire format, optionally with the
// relationship the caller already knows
type IngestMessage struct {
	Raw          string                      `json:"raw"`
	Relationship *RelationshipClassification `json:"relationship,omitempty"`
}

// IngestRequest carries a batch of sent messages to index
type IngestRequest struct {
	Messages []IngestMessage `json:"messages"`
}
