package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/kyleking/catalog-chat/internal/cache"
	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/logging"
	"github.com/kyleking/catalog-chat/internal/prefs"
	"github.com/kyleking/catalog-chat/internal/remote"
	"github.com/kyleking/catalog-chat/internal/storage"
)

const (
	catalogCacheKey = "catalog:"

	fallbackTimeout  = 30 * time.Second
	fallbackCacheTTL = time.Hour
)

// initializeStorage opens the execution history database
func initializeStorage(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	repo, err := storage.NewDuckDBRepositoryFromConfig(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return repo, nil
}

func openPrefs(cfg *config.Config) (*prefs.Store, error) {
	return prefs.Open(cfg.Storage.PrefsPath)
}

func newBackendClient(cfg *config.Config) *remote.Client {
	timeout := config.Duration(cfg.Execution.Timeout, fallbackTimeout)

	return remote.NewClient(cfg.Catalog.BaseURL, timeout, remote.WithToken(cfg.Catalog.Token))
}

// catalogSource builds the configured catalog source, wrapped in the file
// cache unless caching is disabled. The returned func releases whatever the
// source holds open.
func catalogSource(ctx context.Context, cfg *config.Config) (catalog.Source, func(), error) {
	var (
		source  catalog.Source
		cleanup = func() {}
		key     string
	)

	switch cfg.Catalog.Source {
	case config.SourceFile:
		if cfg.Catalog.File == "" {
			return nil, nil, errors.NewConfigError("catalog file not set", "catalog.file").
				WithSuggestion("Pass --catalog-file or set CATALOG_CHAT_CATALOG_FILE")
		}

		return catalog.NewFileSource(afero.NewOsFs(), cfg.Catalog.File), cleanup, nil
	case config.SourcePostgres:
		pg, err := storage.NewPostgresCatalog(ctx, cfg.Catalog.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		source, cleanup, key = pg, pg.Close, catalogCacheKey+"postgres"
	default:
		timeout := config.Duration(cfg.Catalog.Timeout, fallbackTimeout)
		source = remote.NewClient(cfg.Catalog.BaseURL, timeout, remote.WithToken(cfg.Catalog.Token))
		key = catalogCacheKey + cfg.Catalog.BaseURL
	}

	if cfg.Cache.Disabled {
		return source, cleanup, nil
	}

	fc, err := cache.NewFileCache(
		cfg.Cache.Directory,
		cfg.Cache.MaxSizeMB,
		config.Duration(cfg.Catalog.CacheTTL, fallbackCacheTTL),
		config.Duration(cfg.Cache.CleanupFreq, fallbackCacheTTL),
	)
	if err != nil {
		logging.WithError(err).Warn("Catalog cache unavailable, loading without it")
		return source, cleanup, nil
	}

	release := func() {
		_ = fc.Close()
		cleanup()
	}

	return catalog.NewCachedSource(source, fc, key, config.Duration(cfg.Catalog.CacheTTL, fallbackCacheTTL)), release, nil
}

// loadCatalog fetches and indexes the catalog
func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Snapshot, error) {
	source, cleanup, err := catalogSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return catalog.Load(ctx, source)
}
