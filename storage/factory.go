package storage

import (
	"fmt"
	"strings"

	"github.com/pthm-cable/ecosim/config"
)

// NewStore builds a store by kind. dsn is the file path for file and
// sqlite, the connection string for postgres, and "owner/repo" for github
// (path, branch and token variable take their defaults).
func NewStore(kind, dsn string) (Store, error) {
	cfg := config.Default().Storage
	cfg.Kind = kind
	cfg.DSN = dsn
	return FromConfig(cfg)
}

// FromConfig builds the store described by the storage section.
func FromConfig(cfg config.StorageConfig) (Store, error) {
	switch cfg.Kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.DSN), nil
	case "sqlite":
		return NewSQLiteStore(cfg.DSN), nil
	case "postgres":
		return NewPostgresStore(cfg.DSN), nil
	case "github":
		gh := cfg.GitHub
		if cfg.DSN != "" {
			owner, repo, ok := strings.Cut(cfg.DSN, "/")
			if !ok || owner == "" || repo == "" {
				return nil, fmt.Errorf("github store dsn must be owner/repo, got %q", cfg.DSN)
			}
			gh.Owner, gh.Repo = owner, repo
		}
		return NewGitHubStore(gh), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
