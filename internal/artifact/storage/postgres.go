package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const locationPrefix = "postgres:"

const schema = `
CREATE TABLE IF NOT EXISTS lead_artifacts (
	name       TEXT PRIMARY KEY,
	content    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps artifacts as rows of the lead_artifacts table
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the artifact table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create lead_artifacts table: %w", err)
	}
	return nil
}

// Save upserts content under name
func (s *PostgresStore) Save(ctx context.Context, name string, content []byte) (string, error) {
	query := `
		INSERT INTO lead_artifacts (name, content, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET content = EXCLUDED.content, created_at = EXCLUDED.created_at
	`
	if _, err := s.db.ExecContext(ctx, query, name, content); err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	return locationPrefix + name, nil
}

// Delete removes the row at location. Deleting a missing row succeeds.
func (s *PostgresStore) Delete(ctx context.Context, location string) error {
	query := `DELETE FROM lead_artifacts WHERE name = $1`
	if _, err := s.db.ExecContext(ctx, query, strings.TrimPrefix(location, locationPrefix)); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}
