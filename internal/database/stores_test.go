package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonelearn/internal/models"
)

func newMockClient(t *testing.T, driver string) (*WriteClient, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewWriteClientFromDB(sqlx.NewDb(mockDB, driver)), mock
}

func sampleProfile() models.StoredProfile {
	return models.StoredProfile{
		UserID:           "u1",
		PreferenceType:   models.PreferenceCategory,
		TargetIdentifier: "colleague",
		Patterns: models.WritingPatterns{
			SentenceStats: models.SentenceStats{AvgLength: 19, MinLength: 3, MaxLength: 40},
			Valedictions:  []models.PhrasePattern{{Phrase: "Thanks", Percentage: 60}},
		},
		EmailsAnalyzed: 100,
		BatchCount:     2,
		UpdatedAt:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestProfileStore_Upsert(t *testing.T) {
	tests := []struct {
		driver string
		clause string
	}{
		{driver: "postgres", clause: `(?s)INSERT INTO tone_preferences .*VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\) ON CONFLICT \(user_id, preference_type, target_identifier\) DO UPDATE`},
		{driver: "mysql", clause: `(?s)INSERT INTO tone_preferences .*ON DUPLICATE KEY UPDATE`},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			wc, mock := newMockClient(t, tt.driver)
			store := NewProfileStore(wc)
			p := sampleProfile()

			mock.ExpectExec(tt.clause).
				WithArgs("u1", "category", "colleague", sqlmock.AnyArg(), 100, 2, p.UpdatedAt).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, store.Upsert(context.Background(), p))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfileStore_UpsertSetsTimestamp(t *testing.T) {
	wc, mock := newMockClient(t, "postgres")
	store := NewProfileStore(wc)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	p := sampleProfile()
	p.UpdatedAt = time.Time{}
	mock.ExpectExec("INSERT INTO tone_preferences").
		WithArgs("u1", "category", "colleague", sqlmock.AnyArg(), 100, 2, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Upsert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_Get(t *testing.T) {
	wc, mock := newMockClient(t, "postgres")
	store := NewProfileStore(wc)
	p := sampleProfile()
	raw, err := json.Marshal(p.Patterns)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM tone_preferences WHERE user_id = \$1`).
		WithArgs("u1", "category", "colleague").
		WillReturnRows(sqlmock.NewRows(strings.Split(strings.ReplaceAll(profileColumns, " ", ""), ",")).
			AddRow("u1", "category", "colleague", raw, 100, 2, p.UpdatedAt))

	got, err := store.Get(context.Background(), "u1", "category", "colleague")
	require.NoError(t, err)
	assert.Equal(t, p.Patterns, got.Patterns)
	assert.Equal(t, 100, got.EmailsAnalyzed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_GetNotFound(t *testing.T) {
	wc, mock := newMockClient(t, "postgres")
	store := NewProfileStore(wc)

	mock.ExpectQuery("SELECT .* FROM tone_preferences").WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "u1", "aggregate", "aggregate")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileStore_DeleteByUser(t *testing.T) {
	wc, mock := newMockClient(t, "postgres")
	store := NewProfileStore(wc)

	mock.ExpectExec(`DELETE FROM tone_preferences WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeleteByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRelationshipStore_GetRelationship(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(mock sqlmock.Sqlmock)
		wantType string
		wantNil  bool
		wantErr  bool
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT relationship_type FROM user_relationships").
					WithArgs("u1", "bob@example.com").
					WillReturnRows(sqlmock.NewRows([]string{"relationship_type"}).AddRow("friend"))
			},
			wantType: "friend",
		},
		{
			name: "not classified",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT relationship_type FROM user_relationships").WillReturnError(sql.ErrNoRows)
			},
			wantNil: true,
		},
		{
			name: "database error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT relationship_type FROM user_relationships").WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wc, mock := newMockClient(t, "postgres")
			store := NewRelationshipStore(wc)
			tt.setup(mock)

			got, err := store.GetRelationship(context.Background(), "u1", "Bob@Example.com")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, 1.0, got.Confidence)
		})
	}
}

func TestRelationshipStore_SetAndPrimaryAddress(t *testing.T) {
	wc, mock := newMockClient(t, "mysql")
	store := NewRelationshipStore(wc)

	mock.ExpectExec(`(?s)INSERT INTO user_relationships .*ON DUPLICATE KEY UPDATE`).
		WithArgs("u1", "bob@example.com", "colleague").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO user_accounts .*ON DUPLICATE KEY UPDATE`).
		WithArgs("u1", "me@acme.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT email_address FROM user_accounts").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"email_address"}).AddRow("me@acme.com"))
	mock.ExpectQuery("SELECT email_address FROM user_accounts").
		WithArgs("u2").
		WillReturnError(sql.ErrNoRows)

	ctx := context.Background()
	require.NoError(t, store.SetRelationship(ctx, "u1", "BOB@example.com", "colleague"))
	require.NoError(t, store.SetPrimaryAddress(ctx, "u1", "Me@Acme.com"))

	addr, err := store.GetPrimaryAddress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "me@acme.com", addr)

	addr, err = store.GetPrimaryAddress(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, addr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type reverseSealer struct{ fail bool }

func (r reverseSealer) Encrypt(s string) (string, error) {
	if r.fail {
		return "", errors.New("no key")
	}
	return "sealed:" + s, nil
}

func (r reverseSealer) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "sealed:") {
		return "", errors.New("tampered")
	}
	return strings.TrimPrefix(s, "sealed:"), nil
}

func TestCredentialStore_SaveEncrypts(t *testing.T) {
	wc, mock := newMockClient(t, "postgres")
	store := NewCredentialStore(wc, reverseSealer{})

	mock.ExpectExec(`(?s)INSERT INTO mail_credentials .*ON CONFLICT`).
		WithArgs("u1", "me@acme.com", "imap.acme.com", 993, "me", "sealed:hunter2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Save(context.Background(), models.MailCredential{
		UserID: "u1", AccountEmail: "Me@Acme.com", Host: "imap.acme.com", Port: 993, Username: "me", Secret: "hunter2",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_SaveEncryptionFailure(t *testing.T) {
	wc, _ := newMockClient(t, "postgres")
	store := NewCredentialStore(wc, reverseSealer{fail: true})

	err := store.Save(context.Background(), models.MailCredential{UserID: "u1", Secret: "x"})
	assert.ErrorContains(t, err, "failed to encrypt credential")
}

func TestCredentialStore_GetDecrypts(t *testing.T) {
	wc, mock := newMockClient(t, "postgres")
	store := NewCredentialStore(wc, reverseSealer{})
	cols := []string{"user_id", "account_email", "host", "port", "username", "encrypted_secret", "updated_at"}

	mock.ExpectQuery("SELECT .* FROM mail_credentials").
		WithArgs("u1", "me@acme.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "me@acme.com", "imap", 993, "me", "sealed:pw", time.Now()))
	mock.ExpectQuery("SELECT .* FROM mail_credentials").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "me@acme.com", "imap", 993, "me", "garbage", time.Now()))
	mock.ExpectQuery("SELECT .* FROM mail_credentials").WillReturnError(sql.ErrNoRows)

	ctx := context.Background()
	c, err := store.Get(ctx, "u1", "me@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "pw", c.Secret)

	_, err = store.Get(ctx, "u1", "me@acme.com")
	assert.ErrorContains(t, err, "failed to decrypt credential")

	_, err = store.Get(ctx, "u1", "me@acme.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
