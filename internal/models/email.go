package models

import (
	"strings"
	"time"
)

// ForwardedWithoutComment stands in for an empty authored reply so feature
// extraction never receives an empty body.
const ForwardedWithoutComment = "[Forwarded without comment]"

// Address is one mailbox from a From/To/Cc/Bcc header
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// HistoricalMessage represents one sent email as observed by the account owner
type HistoricalMessage struct {
	MessageID    string                      `json:"message_id"`
	UserID       string                      `json:"user_id,omitempty"`
	SentAt       time.Time                   `json:"sent_at"`
	ReceivedAt   *time.Time                  `json:"received_at,omitempty"`
	From         []Address                   `json:"from"`
	To           []Address                   `json:"to"`
	Cc           []Address                   `json:"cc,omitempty"`
	Bcc          []Address                   `json:"bcc,omitempty"`
	Subject      string                      `json:"subject"`
	UserReply    string                      `json:"user_reply"`   // text the user authored
	RespondedTo  string                      `json:"responded_to"` // quoted or forwarded content
	RawMessage   string                      `json:"raw_message,omitempty"`
	InReplyTo    string                      `json:"in_reply_to,omitempty"`
	Relationship *RelationshipClassification `json:"relationship,omitempty"`
}

// ReplyText returns the authored reply, or the forwarded sentinel when it is blank
func (m *HistoricalMessage) ReplyText() string {
	if strings.TrimSpace(m.UserReply) == "" {
		return ForwardedWithoutComment
	}
	return m.UserReply
}

// Recipients returns the union of To, Cc and Bcc deduplicated by lowercased
// address, in header order. Entries without an address are skipped.
func (m *HistoricalMessage) Recipients() []Address {
	seen := make(map[string]bool)
	var out []Address
	for _, list := range [][]Address{m.To, m.Cc, m.Bcc} {
		for _, a := range list {
			key := NormalizeEmail(a.Email)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Address{Email: key, Name: strings.TrimSpace(a.Name)})
		}
	}
	return out
}

// Sender returns the first From address, or an empty Address
func (m *HistoricalMessage) Sender() Address {
	if len(m.From) == 0 {
		return Address{}
	}
	return m.From[0]
}

// AllAddresses lists every address on the message for diagnostics
func (m *HistoricalMessage) AllAddresses() []string {
	var out []string
	for _, list := range [][]Address{m.From, m.To, m.Cc, m.Bcc} {
		for _, a := range list {
			out = append(out, a.Email)
		}
	}
	return out
}

// ParticipantNames returns display names on the message, used to seed redaction
func (m *HistoricalMessage) ParticipantNames() []string {
	var names []string
	for _, list := range [][]Address{m.From, m.To, m.Cc, m.Bcc} {
		for _, a := range list {
			if n := strings.TrimSpace(a.Name); n != "" {
				names = append(names, n)
			}
		}
	}
	return names
}

// NormalizeEmail lowercases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the part after '@', lowercased
func EmailDomain(email string) string {
	email = NormalizeEmail(email)
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}
