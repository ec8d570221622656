package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const defaultQueryTimeout = 30 * time.Second

// WriteClient runs the engine's reads and writes with a per-query timeout.
// Queries are written with ? placeholders and rebound for the driver.
type WriteClient struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewWriteClient opens a connection for databaseURL
func NewWriteClient(databaseURL string) (*WriteClient, error) {
	db, err := New(databaseURL)
	if err != nil {
		return nil, err
	}
	return NewWriteClientFromDB(db), nil
}

// NewWriteClientFromDB wraps an existing connection
func NewWriteClientFromDB(db *sqlx.DB) *WriteClient {
	return &WriteClient{db: db, timeout: defaultQueryTimeout}
}

// GetDB returns the underlying database connection
func (wc *WriteClient) GetDB() *sqlx.DB {
	return wc.db
}

// IsPostgres reports whether upserts use ON CONFLICT rather than ON DUPLICATE KEY
func (wc *WriteClient) IsPostgres() bool {
	return wc.db.DriverName() == driverPostgres
}

// ExecuteWriteQuery executes a write query and returns the result
func (wc *WriteClient) ExecuteWriteQuery(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, wc.timeout)
	defer cancel()

	return wc.db.ExecContext(ctx, wc.db.Rebind(query), args...)
}

// ExecuteQuery scans all rows into dest
func (wc *WriteClient) ExecuteQuery(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, wc.timeout)
	defer cancel()

	return wc.db.SelectContext(ctx, dest, wc.db.Rebind(query), args...)
}

// ExecuteQuerySingle scans a single row into dest. It returns sql.ErrNoRows unwrapped.
func (wc *WriteClient) ExecuteQuerySingle(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, wc.timeout)
	defer cancel()

	return wc.db.GetContext(ctx, dest, wc.db.Rebind(query), args...)
}

// EnsureSchema creates the engine tables when missing
func (wc *WriteClient) EnsureSchema(ctx context.Context) error {
	statements := mysqlSchema
	if wc.IsPostgres() {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := wc.ExecuteWriteQuery(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity inside a rolled-back transaction
func (wc *WriteClient) Ping(ctx context.Context) error {
	return ExecuteReadOnlyPing(ctx, wc.db)
}

// Close closes the database connection
func (wc *WriteClient) Close() error {
	return wc.db.Close()
}
