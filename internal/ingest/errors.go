package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingRawMessage is returned when a deployment requires the original wire message
	ErrMissingRawMessage = errors.New("raw message is required")
	// ErrNoRecipients is returned for a message with no resolvable to/cc/bcc address
	ErrNoRecipients = errors.New("message has no recipients")
)

// DetectionError carries enough context to find the message that failed
// relationship detection in a large import.
type DetectionError struct {
	MessageID string
	UserID    string
	Recipient string
	Addresses []string
	Subject   string
	Preview   string
	Err       error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("relationship detection failed for message %s (user %s, recipient %s, subject %q): %v",
		e.MessageID, e.UserID, e.Recipient, e.Subject, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// ErrorRateExceededError aborts a run. Counts are frozen at the abort point.
type ErrorRateExceededError struct {
	Processed int
	Errors    int
	Threshold float64
}

func (e *ErrorRateExceededError) Error() string {
	return fmt.Sprintf("ingestion aborted: %d errors in %d examples exceeds error threshold %.2f",
		e.Errors, e.Processed, e.Threshold)
}

// Rate is errors over processed examples
func (e *ErrorRateExceededError) Rate() float64 {
	if e.Processed == 0 {
		return 0
	}
	return float64(e.Errors) / float64(e.Processed)
}

// preview returns the first n words of text
func preview(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
