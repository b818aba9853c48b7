package storage

import (
	"context"

	"github.com/kyleking/catalog-chat/internal/config"
)

// NewDuckDBRepositoryFromConfig opens and migrates the execution log at the configured path
func NewDuckDBRepositoryFromConfig(ctx context.Context, cfg *config.StorageConfig) (*DuckDBRepository, error) {
	repo, err := NewDuckDBRepository(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}

	return repo, nil
}
