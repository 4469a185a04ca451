// Package storage persists the ecosystem document between runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pthm-cable/ecosim/telemetry"
)

var (
	// ErrNotInitialized is returned when a store is used before Init.
	ErrNotInitialized = errors.New("store is not initialized")
	// ErrMissingCredentials is returned when a remote store has no token.
	ErrMissingCredentials = errors.New("missing store credentials")
)

// Store loads and saves the latest ecosystem document.
// Load reports false with a nil error when no document exists yet.
type Store interface {
	Init(ctx context.Context) error
	Load(ctx context.Context) (*telemetry.Snapshot, bool, error)
	Save(ctx context.Context, snapshot *telemetry.Snapshot, description string) error
}

// Revision describes one saved document.
type Revision struct {
	ID          int64
	Description string
	SavedAt     time.Time
}

// Historian is implemented by stores that keep every saved revision.
type Historian interface {
	History(ctx context.Context, limit int) ([]Revision, error)
}

// HistoryIfSupported returns the newest-first revision list when the store
// keeps one. ok is false for stores that only hold the latest document.
func HistoryIfSupported(ctx context.Context, store Store, limit int) (revs []Revision, ok bool, err error) {
	h, ok := store.(Historian)
	if !ok {
		return nil, false, nil
	}
	revs, err = h.History(ctx, limit)
	return revs, true, err
}

// limitRevisions trims a newest-first list; limit <= 0 keeps everything.
func limitRevisions(revs []Revision, limit int) []Revision {
	if limit > 0 && len(revs) > limit {
		return revs[:limit]
	}
	return revs
}
