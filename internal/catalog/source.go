package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/kyleking/catalog-chat/internal/cache"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/logging"
)

// Source loads raw catalog rows
type Source interface {
	FetchRows(ctx context.Context) ([]Row, error)
}

// Payload is the catalog listing envelope
type Payload struct {
	Version     string `json:"version,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`
	Count       int    `json:"count"`
	Items       []Row  `json:"items"`
}

// DecodePayload accepts either the listing envelope or a bare array of rows.
// An envelope without an items array is rejected.
func DecodePayload(data []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []Row
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeCatalog, "failed to parse catalog rows")
		}

		return rows, nil
	}

	var envelope struct {
		Items *[]Row `json:"items"`
	}

	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeCatalog, "failed to parse catalog payload")
	}

	if envelope.Items == nil {
		return nil, errors.New(errors.ErrTypeCatalog, "catalog payload has no items array")
	}

	return *envelope.Items, nil
}

// FileSource reads a catalog export from a filesystem
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource creates a source reading path from fs
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

// FetchRows reads and decodes the file
func (s *FileSource) FetchRows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeCatalog, "failed to read catalog file %s", s.path)
	}

	return DecodePayload(data)
}

// CachedSource serves rows from a file cache while fresh and refills it from
// the wrapped source otherwise
type CachedSource struct {
	inner Source
	cache cache.Cache
	key   string
	ttl   time.Duration
}

// NewCachedSource wraps inner; key identifies the catalog in the cache
func NewCachedSource(inner Source, c cache.Cache, key string, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, cache: c, key: key, ttl: ttl}
}

// FetchRows returns cached rows or fetches and stores fresh ones
func (s *CachedSource) FetchRows(ctx context.Context) ([]Row, error) {
	logger := logging.WithField("cache_key", s.key)

	if data, err := s.cache.Get(ctx, s.key); err == nil {
		rows, decodeErr := DecodePayload(data)
		if decodeErr == nil {
			logger.WithField("rows", len(rows)).Debug("Catalog served from cache")
			return rows, nil
		}

		logger.WithError(decodeErr).Warn("Discarding unreadable cached catalog")
	}

	rows, err := s.inner.FetchRows(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(Payload{Count: len(rows), Items: rows})
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog for cache: %w", err)
	}

	if err := s.cache.Set(ctx, s.key, data, s.ttl); err != nil {
		logger.WithError(err).Warn("Failed to cache catalog")
	}

	return rows, nil
}

// Load fetches rows from source and builds a snapshot
func Load(ctx context.Context, source Source) (*Snapshot, error) {
	var rows []Row

	err := logging.Track("catalog.load", func() error {
		var err error
		rows, err = source.FetchRows(ctx)

		return err
	})
	if err != nil {
		if errors.GetType(err) == errors.ErrTypeInternal {
			return nil, errors.Wrap(err, errors.ErrTypeCatalog, "catalog unavailable")
		}

		return nil, err
	}

	snapshot := NewSnapshot(rows)
	logging.WithFields(map[string]interface{}{
		"rows":      len(rows),
		"documents": snapshot.Len(),
	}).Info("Catalog loaded")

	return snapshot, nil
}
