package complexity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists preferences per owner in the user_preferences
// table created by the migrations.
type PostgresStore struct {
	db      *sql.DB
	ownerID string
}

// NewPostgresStore wraps an open connection. The schema must already exist.
func NewPostgresStore(db *sql.DB, ownerID string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db, ownerID: ownerID}, nil
}

// NewPostgresStoreFromURL opens a lib/pq connection pool for databaseURL.
func NewPostgresStoreFromURL(databaseURL, ownerID string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db, ownerID)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM user_preferences WHERE owner_id = $1 AND key = $2",
		s.ownerID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (owner_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, s.ownerID, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
