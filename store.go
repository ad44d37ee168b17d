package edupress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eringen/edupress/contentstore"
	"github.com/eringen/edupress/repository"
)

// OpenStore builds the content store selected by cfg.StoreBackend. The
// returned close function releases it.
func OpenStore(ctx context.Context, cfg *Config) (contentstore.Client, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case BackendGitHub:
		owner, name, err := contentstore.ParseRepo(cfg.GitHubRepo)
		if err != nil {
			return nil, nil, err
		}
		gh, err := contentstore.NewGitHub(ctx, contentstore.GitHubConfig{
			Token:   cfg.GitHubToken,
			Owner:   owner,
			Repo:    name,
			Branch:  cfg.GitHubBranch,
			BaseURL: cfg.GitHubAPIURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init github store: %w", err)
		}
		return gh, noop, nil

	case BackendSQLite:
		db, err := contentstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return db, db.Close, nil

	case BackendMemory:
		return contentstore.NewMemory(), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// NewRepository builds the article repository for cfg on top of store.
func NewRepository(cfg *Config, store contentstore.Client, logger *slog.Logger) *repository.Repository {
	owner, name := cfg.RepoCoordinates()
	return repository.New(store, repository.Config{
		Owner:              owner,
		Repo:               name,
		AssetBaseURL:       cfg.AssetBaseURL,
		MaxConflictRetries: cfg.MaxConflictRetries,
	}, repository.WithLogger(logger))
}
