package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pthm-cable/ecosim/telemetry"
)

// ChangeLogName is the change description log written next to the document.
const ChangeLogName = "changes.log"

// FileStore keeps the latest document in a JSON file and appends each
// change description to changes.log in the same directory.
type FileStore struct {
	path string

	mu          sync.Mutex
	initialized bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	s.initialized = true
	return nil
}

func (s *FileStore) logPath() string {
	return filepath.Join(filepath.Dir(s.path), ChangeLogName)
}

func (s *FileStore) Load(_ context.Context) (*telemetry.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	snap, err := telemetry.LoadSnapshot(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return snap, true, nil
}

// Save writes the document through a temporary file so a crash never
// leaves a truncated document behind.
func (s *FileStore) Save(_ context.Context, snapshot *telemetry.Snapshot, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	data, err := telemetry.EncodeSnapshotJSON(snapshot)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}

	f, err := os.OpenFile(s.logPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open change log: %w", err)
	}
	defer f.Close()

	line := strings.ReplaceAll(description, "\n", " ")
	if _, err := fmt.Fprintf(f, "%s\t%s\n", time.Now().UTC().Format(time.RFC3339), line); err != nil {
		return fmt.Errorf("append change log: %w", err)
	}
	return nil
}

func (s *FileStore) History(_ context.Context, limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	f, err := os.Open(s.logPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open change log: %w", err)
	}
	defer f.Close()

	var revs []Revision
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		stamp, desc, ok := strings.Cut(scanner.Text(), "\t")
		if !ok {
			continue
		}
		savedAt, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			continue
		}
		revs = append(revs, Revision{
			ID:          int64(len(revs) + 1),
			Description: desc,
			SavedAt:     savedAt,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read change log: %w", err)
	}

	// newest first
	for i, j := 0, len(revs)-1; i < j; i, j = i+1, j-1 {
		revs[i], revs[j] = revs[j], revs[i]
	}
	return limitRevisions(revs, limit), nil
}
