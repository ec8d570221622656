package models

import "time"

// MailCredential is a user's mailbox login. Secret is plaintext in memory
// and only ever stored encrypted.
type MailCredential struct {
	UserID       string    `json:"user_id"`
	AccountEmail string    `json:"account_email"`
	Host         string    `json:"host,omitempty"`
	Port         int       `json:"port,omitempty"`
	Username     string    `json:"username,omitempty"`
	Secret       string    `json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}
