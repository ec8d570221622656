package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tonelearn/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ProfileStore persists aggregated writing profiles in tone_preferences
type ProfileStore struct {
	wc  *WriteClient
	now func() time.Time
}

// NewProfileStore creates a profile store
func NewProfileStore(wc *WriteClient) *ProfileStore {
	return &ProfileStore{wc: wc, now: time.Now}
}

type profileRow struct {
	UserID           string    `db:"user_id"`
	PreferenceType   string    `db:"preference_type"`
	TargetIdentifier string    `db:"target_identifier"`
	Profile          []byte    `db:"profile"`
	EmailsAnalyzed   int       `db:"emails_analyzed"`
	BatchCount       int       `db:"batch_count"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r profileRow) toModel() (models.StoredProfile, error) {
	p := models.StoredProfile{
		UserID:           r.UserID,
		PreferenceType:   r.PreferenceType,
		TargetIdentifier: r.TargetIdentifier,
		EmailsAnalyzed:   r.EmailsAnalyzed,
		BatchCount:       r.BatchCount,
		UpdatedAt:        r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Profile, &p.Patterns); err != nil {
		return p, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, nil
}

const profileColumns = `user_id, preference_type, target_identifier, profile, emails_analyzed, batch_count, updated_at`

// Upsert replaces the stored profile for (user, preference type, target) wholesale
func (s *ProfileStore) Upsert(ctx context.Context, p models.StoredProfile) error {
	profile, err := json.Marshal(p.Patterns)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now().UTC()
	}

	query := `INSERT INTO tone_preferences (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if s.wc.IsPostgres() {
		query += ` ON CONFLICT (user_id, preference_type, target_identifier) DO UPDATE SET
			profile = EXCLUDED.profile,
			emails_analyzed = EXCLUDED.emails_analyzed,
			batch_count = EXCLUDED.batch_count,
			updated_at = EXCLUDED.updated_at`
	} else {
		query += ` ON DUPLICATE KEY UPDATE
			profile = VALUES(profile),
			emails_analyzed = VALUES(emails_analyzed),
			batch_count = VALUES(batch_count),
			updated_at = VALUES(updated_at)`
	}

	_, err = s.wc.ExecuteWriteQuery(ctx, query,
		p.UserID, p.PreferenceType, p.TargetIdentifier, string(profile), p.EmailsAnalyzed, p.BatchCount, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s/%s/%s: %w", p.UserID, p.PreferenceType, p.TargetIdentifier, err)
	}
	return nil
}

// Get returns one stored profile or ErrNotFound
func (s *ProfileStore) Get(ctx context.Context, userID, preferenceType, target string) (*models.StoredProfile, error) {
	var row profileRow
	err := s.wc.ExecuteQuerySingle(ctx, &row,
		`SELECT `+profileColumns+` FROM tone_preferences WHERE user_id = ? AND preference_type = ? AND target_identifier = ?`,
		userID, preferenceType, target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns every profile stored for a user
func (s *ProfileStore) ListByUser(ctx context.Context, userID string) ([]models.StoredProfile, error) {
	var rows []profileRow
	err := ExecuteReadOnlyQuery(ctx, s.wc.GetDB(), &rows,
		`SELECT `+profileColumns+` FROM tone_preferences WHERE user_id = ? ORDER BY preference_type, target_identifier`,
		userID)
	if err != nil {
		return nil, err
	}

	profiles := make([]models.StoredProfile, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// DeleteByUser removes every profile of a user
func (s *ProfileStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.wc.ExecuteWriteQuery(ctx, `DELETE FROM tone_preferences WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete profiles: %w", err)
	}
	return res.RowsAffected()
}
