package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tonelearn/internal/models"
)

// RelationshipStore holds user-declared relationships and account addresses
type RelationshipStore struct {
	wc *WriteClient
}

// NewRelationshipStore creates a relationship store
func NewRelationshipStore(wc *WriteClient) *RelationshipStore {
	return &RelationshipStore{wc: wc}
}

// SetRelationship records how the user classifies a recipient
func (s *RelationshipStore) SetRelationship(ctx context.Context, userID, recipientEmail, relationshipType string) error {
	query := `INSERT INTO user_relationships (user_id, recipient_email, relationship_type) VALUES (?, ?, ?)`
	if s.wc.IsPostgres() {
		query += ` ON CONFLICT (user_id, recipient_email) DO UPDATE SET
			relationship_type = EXCLUDED.relationship_type, updated_at = CURRENT_TIMESTAMP`
	} else {
		query += ` ON DUPLICATE KEY UPDATE relationship_type = VALUES(relationship_type), updated_at = CURRENT_TIMESTAMP`
	}

	if _, err := s.wc.ExecuteWriteQuery(ctx, query, userID, models.NormalizeEmail(recipientEmail), relationshipType); err != nil {
		return fmt.Errorf("failed to save relationship: %w", err)
	}
	return nil
}

// GetRelationship returns nil when the user has not classified the recipient
func (s *RelationshipStore) GetRelationship(ctx context.Context, userID, recipientEmail string) (*models.RelationshipClassification, error) {
	var relType string
	err := s.wc.ExecuteQuerySingle(ctx, &relType,
		`SELECT relationship_type FROM user_relationships WHERE user_id = ? AND recipient_email = ?`,
		userID, models.NormalizeEmail(recipientEmail))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load relationship: %w", err)
	}
	return &models.RelationshipClassification{Type: relType, Confidence: 1.0, DetectionMethod: "user_defined"}, nil
}

// SetPrimaryAddress records the user's own mailbox address
func (s *RelationshipStore) SetPrimaryAddress(ctx context.Context, userID, email string) error {
	query := `INSERT INTO user_accounts (user_id, email_address) VALUES (?, ?)`
	if s.wc.IsPostgres() {
		query += ` ON CONFLICT (user_id) DO UPDATE SET email_address = EXCLUDED.email_address, updated_at = CURRENT_TIMESTAMP`
	} else {
		query += ` ON DUPLICATE KEY UPDATE email_address = VALUES(email_address), updated_at = CURRENT_TIMESTAMP`
	}

	if _, err := s.wc.ExecuteWriteQuery(ctx, query, userID, models.NormalizeEmail(email)); err != nil {
		return fmt.Errorf("failed to save account address: %w", err)
	}
	return nil
}

// GetPrimaryAddress returns "" when the user has no registered account
func (s *RelationshipStore) GetPrimaryAddress(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.wc.ExecuteQuerySingle(ctx, &email, `SELECT email_address FROM user_accounts WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load account address: %w", err)
	}
	return email, nil
}

// DeleteByUser removes relationships and the account row of a user
func (s *RelationshipStore) DeleteByUser(ctx context.Context, userID string) error {
	for _, query := range []string{
		`DELETE FROM user_relationships WHERE user_id = ?`,
		`DELETE FROM user_accounts WHERE user_id = ?`,
	} {
		if _, err := s.wc.ExecuteWriteQuery(ctx, query, userID); err != nil {
			return fmt.Errorf("failed to delete user relationships: %w", err)
		}
	}
	return nil
}
