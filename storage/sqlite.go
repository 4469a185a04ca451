package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pthm-cable/ecosim/telemetry"

	_ "modernc.org/sqlite"
)

// SQLiteStore appends every saved document to a revisions table.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createSQLiteTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*telemetry.Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM revisions ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	snap, err := telemetry.DecodeSnapshotJSON(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode latest revision: %w", err)
	}
	return snap, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snapshot *telemetry.Snapshot, description string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := telemetry.EncodeSnapshotJSON(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO revisions (description, saved_at, payload)
		VALUES (?, ?, ?)
	`, description, time.Now().UTC().Format(time.RFC3339Nano), payload)
	return err
}

func (s *SQLiteStore) History(ctx context.Context, limit int) ([]Revision, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, description, saved_at FROM revisions
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var (
			rev   Revision
			stamp string
		)
		if err := rows.Scan(&rev.ID, &rev.Description, &stamp); err != nil {
			return nil, err
		}
		if rev.SavedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("revision %d: %w", rev.ID, err)
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createSQLiteTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS revisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
