package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/go-github/v66/github"

	"github.com/pthm-cable/ecosim/config"
	"github.com/pthm-cable/ecosim/telemetry"
)

// GitHubStore keeps the document as a file in a GitHub repository. Every
// save is a commit whose message is the change description.
type GitHubStore struct {
	owner, repo string
	path        string
	branch      string
	token       string

	mu     sync.Mutex
	client *github.Client
}

// NewGitHubStore creates a store from the github storage section. The token
// is read from the environment variable named by cfg.TokenEnv.
func NewGitHubStore(cfg config.GitHubConfig) *GitHubStore {
	s := &GitHubStore{
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		path:   cfg.Path,
		branch: cfg.Branch,
	}
	if cfg.TokenEnv != "" {
		s.token = os.Getenv(cfg.TokenEnv)
	}
	return s
}

// WithClient replaces the API client. Used to point the store at another
// API endpoint.
func (s *GitHubStore) WithClient(c *github.Client) *GitHubStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
	return s
}

func (s *GitHubStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == "" || s.repo == "" || s.path == "" {
		return errors.New("github store needs owner, repo and path")
	}
	if s.client == nil {
		if s.token == "" {
			return ErrMissingCredentials
		}
		s.client = github.NewClient(nil).WithAuthToken(s.token)
	}
	return nil
}

func (s *GitHubStore) getClient() (*github.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil, ErrNotInitialized
	}
	return s.client, nil
}

// fetch returns the current file, or nil when it does not exist yet.
func (s *GitHubStore) fetch(ctx context.Context, c *github.Client) (*github.RepositoryContent, error) {
	opts := &github.RepositoryContentGetOptions{Ref: s.branch}
	file, _, resp, err := c.Repositories.GetContents(ctx, s.owner, s.repo, s.path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s/%s/%s: %w", s.owner, s.repo, s.path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s in %s/%s is a directory", s.path, s.owner, s.repo)
	}
	return file, nil
}

func (s *GitHubStore) Load(ctx context.Context) (*telemetry.Snapshot, bool, error) {
	c, err := s.getClient()
	if err != nil {
		return nil, false, err
	}

	file, err := s.fetch(ctx, c)
	if err != nil || file == nil {
		return nil, false, err
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, false, nil
	}

	snap, err := telemetry.DecodeSnapshotJSON([]byte(content))
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Save updates the file in place, or creates it on the first save.
func (s *GitHubStore) Save(ctx context.Context, snapshot *telemetry.Snapshot, description string) error {
	c, err := s.getClient()
	if err != nil {
		return err
	}

	payload, err := telemetry.EncodeSnapshotJSON(snapshot)
	if err != nil {
		return err
	}

	current, err := s.fetch(ctx, c)
	if err != nil {
		return err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(description),
		Content: payload,
	}
	if s.branch != "" {
		opts.Branch = github.String(s.branch)
	}

	if current == nil {
		_, _, err = c.Repositories.CreateFile(ctx, s.owner, s.repo, s.path, opts)
	} else {
		opts.SHA = github.String(current.GetSHA())
		_, _, err = c.Repositories.UpdateFile(ctx, s.owner, s.repo, s.path, opts)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", s.path, err)
	}
	return nil
}
