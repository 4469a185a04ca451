package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/pthm-cable/ecosim/telemetry"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore appends every saved document to a revisions table with a
// JSONB payload.
type PostgresStore struct {
	dsn string

	mu sync.RWMutex
	db *sql.DB
}

// NewPostgresStore creates a store for the given connection string.
// No connection is made until Init.
func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

func (s *PostgresStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dsn == "" {
		return errors.New("postgres connection string is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initPostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.db = db
	return nil
}

// initPostgresSchema initializes the database schema
func initPostgresSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS revisions (
		id BIGSERIAL PRIMARY KEY,
		description TEXT NOT NULL,
		saved_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		payload JSONB NOT NULL
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) Load(ctx context.Context) (*telemetry.Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload string
	err = db.QueryRowContext(ctx, `SELECT payload FROM revisions ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load latest revision: %w", err)
	}

	snap, err := telemetry.DecodeSnapshotJSON([]byte(payload))
	if err != nil {
		return nil, false, fmt.Errorf("decode latest revision: %w", err)
	}
	return snap, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, snapshot *telemetry.Snapshot, description string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := telemetry.EncodeSnapshotJSON(snapshot)
	if err != nil {
		return err
	}

	query := `INSERT INTO revisions (description, payload) VALUES ($1, $2)`
	if _, err := db.ExecContext(ctx, query, description, string(payload)); err != nil {
		return fmt.Errorf("failed to save revision: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, limit int) ([]Revision, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	// LIMIT NULL means no limit
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, description, saved_at FROM revisions
		ORDER BY id DESC LIMIT $1
	`, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.ID, &rev.Description, &rev.SavedAt); err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *PostgresStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}
