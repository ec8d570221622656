package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tonelearn/internal/models"
)

// Sealer encrypts and decrypts secrets at rest
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CredentialStore keeps mailbox credentials, encrypted
type CredentialStore struct {
	wc     *WriteClient
	sealer Sealer
}

// NewCredentialStore creates a credential store
func NewCredentialStore(wc *WriteClient, sealer Sealer) *CredentialStore {
	return &CredentialStore{wc: wc, sealer: sealer}
}

type credentialRow struct {
	UserID          string    `db:"user_id"`
	AccountEmail    string    `db:"account_email"`
	Host            string    `db:"host"`
	Port            int       `db:"port"`
	Username        string    `db:"username"`
	EncryptedSecret string    `db:"encrypted_secret"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Save encrypts and upserts a credential
func (s *CredentialStore) Save(ctx context.Context, c models.MailCredential) error {
	sealed, err := s.sealer.Encrypt(c.Secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	query := `INSERT INTO mail_credentials (user_id, account_email, host, port, username, encrypted_secret) VALUES (?, ?, ?, ?, ?, ?)`
	if s.wc.IsPostgres() {
		query += ` ON CONFLICT (user_id, account_email) DO UPDATE SET
			host = EXCLUDED.host, port = EXCLUDED.port, username = EXCLUDED.username,
			encrypted_secret = EXCLUDED.encrypted_secret, updated_at = CURRENT_TIMESTAMP`
	} else {
		query += ` ON DUPLICATE KEY UPDATE
			host = VALUES(host), port = VALUES(port), username = VALUES(username),
			encrypted_secret = VALUES(encrypted_secret), updated_at = CURRENT_TIMESTAMP`
	}

	_, err = s.wc.ExecuteWriteQuery(ctx, query,
		c.UserID, models.NormalizeEmail(c.AccountEmail), c.Host, c.Port, c.Username, sealed)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Get loads and decrypts a credential or returns ErrNotFound
func (s *CredentialStore) Get(ctx context.Context, userID, accountEmail string) (*models.MailCredential, error) {
	var row credentialRow
	err := s.wc.ExecuteQuerySingle(ctx, &row,
		`SELECT user_id, account_email, host, port, username, encrypted_secret, updated_at
		 FROM mail_credentials WHERE user_id = ? AND account_email = ?`,
		userID, models.NormalizeEmail(accountEmail))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	secret, err := s.sealer.Decrypt(row.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential: %w", err)
	}

	return &models.MailCredential{
		UserID:       row.UserID,
		AccountEmail: row.AccountEmail,
		Host:         row.Host,
		Port:         row.Port,
		Username:     row.Username,
		Secret:       secret,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

// DeleteByUser removes all credentials of a user
func (s *CredentialStore) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := s.wc.ExecuteWriteQuery(ctx, `DELETE FROM mail_credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
