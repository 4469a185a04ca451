package storage

import (
	"context"
	"sync"
	"time"

	"github.com/pthm-cable/ecosim/telemetry"
)

// MemoryStore keeps every saved document in memory.
// Documents are stored encoded so later mutation by the caller cannot leak in.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	revisions   []memoryRevision
}

type memoryRevision struct {
	Revision
	payload []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*telemetry.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	if len(s.revisions) == 0 {
		return nil, false, nil
	}
	snap, err := telemetry.DecodeSnapshotJSON(s.revisions[len(s.revisions)-1].payload)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

func (s *MemoryStore) Save(_ context.Context, snapshot *telemetry.Snapshot, description string) error {
	payload, err := telemetry.EncodeSnapshotJSON(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.revisions = append(s.revisions, memoryRevision{
		Revision: Revision{
			ID:          int64(len(s.revisions) + 1),
			Description: description,
			SavedAt:     time.Now().UTC(),
		},
		payload: payload,
	})
	return nil
}

func (s *MemoryStore) History(_ context.Context, limit int) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]Revision, 0, len(s.revisions))
	for i := len(s.revisions) - 1; i >= 0; i-- {
		out = append(out, s.revisions[i].Revision)
	}
	return limitRevisions(out, limit), nil
}
