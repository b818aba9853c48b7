package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache defines the interface for local file caching operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int64, error)
	Cleanup(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
}

// Entry represents the metadata stored beside each cached payload
type Entry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int64     `json:"size"`
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	MissRate     float64 `json:"miss_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// FileCache implements the Cache interface on an afero filesystem
type FileCache struct {
	fs          afero.Fs
	directory   string
	maxBytes    int64
	defaultTTL  time.Duration
	cleanupFreq time.Duration
	mu          sync.RWMutex
	stats       Stats
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewFileCache creates a cache rooted at directory on the OS filesystem
func NewFileCache(
	directory string,
	maxSizeMB int,
	defaultTTL, cleanupFreq time.Duration,
) (*FileCache, error) {
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		directory = filepath.Join(home, directory[2:])
	}

	return NewFileCacheWithFs(afero.NewOsFs(), directory, maxSizeMB, defaultTTL, cleanupFreq)
}

// NewFileCacheWithFs creates a cache on the given filesystem. A zero
// cleanupFreq disables background cleanup.
func NewFileCacheWithFs(
	fs afero.Fs,
	directory string,
	maxSizeMB int,
	defaultTTL, cleanupFreq time.Duration,
) (*FileCache, error) {
	if err := fs.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &FileCache{
		fs:          fs,
		directory:   directory,
		maxBytes:    int64(maxSizeMB) * 1024 * 1024,
		defaultTTL:  defaultTTL,
		cleanupFreq: cleanupFreq,
		stopCleanup: make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.backgroundCleanup()
	}

	return cache, nil
}

// Get retrieves data from cache
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath := c.getFilePath(key)
	metaPath := c.getMetaPath(key)

	if exists, _ := afero.Exists(c.fs, filePath); !exists {
		c.stats.Misses++
		return nil, fmt.Errorf("%w: key not found", ErrMiss)
	}

	metaData, err := afero.ReadFile(c.fs, metaPath)
	if err != nil {
		c.stats.Misses++
		return nil, fmt.Errorf("failed to read cache metadata: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(metaData, &entry); err != nil {
		c.stats.Misses++
		return nil, fmt.Errorf("failed to parse cache metadata: %w", err)
	}

	if time.Now().After(entry.ExpiresAt) {
		c.stats.Misses++
		_ = c.fs.Remove(filePath)
		_ = c.fs.Remove(metaPath)

		return nil, fmt.Errorf("%w: entry expired", ErrMiss)
	}

	data, err := afero.ReadFile(c.fs, filePath)
	if err != nil {
		c.stats.Misses++
		return nil, fmt.Errorf("failed to read cache data: %w", err)
	}

	c.stats.Hits++

	return data, nil
}

// Set stores data in cache with TTL; a zero TTL uses the default
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	filePath := c.getFilePath(key)
	metaPath := c.getMetaPath(key)

	now := time.Now()
	entry := Entry{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Size:      int64(len(data)),
	}

	if err := c.enforceSize(entry.Size); err != nil {
		return fmt.Errorf("failed to enforce cache size: %w", err)
	}

	if err := afero.WriteFile(c.fs, filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache data: %w", err)
	}

	metaData, err := json.Marshal(entry)
	if err != nil {
		_ = c.fs.Remove(filePath)
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	if err := afero.WriteFile(c.fs, metaPath, metaData, 0600); err != nil {
		_ = c.fs.Remove(filePath)
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}

	return nil
}

// Delete removes an entry from cache
func (c *FileCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	_ = c.fs.Remove(c.getFilePath(key))
	_ = c.fs.Remove(c.getMetaPath(key))

	return nil
}

// Clear removes all entries from cache
func (c *FileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := afero.ReadDir(c.fs, c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			_ = c.fs.Remove(filepath.Join(c.directory, entry.Name()))
		}
	}

	c.stats = Stats{}

	return nil
}

// Size returns the total size of cached data
func (c *FileCache) Size(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return c.calculateSize()
}

// Cleanup removes expired entries
func (c *FileCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()

	entries, err := afero.ReadDir(c.fs, c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta") {
			continue
		}

		metaPath := filepath.Join(c.directory, entry.Name())

		metaData, err := afero.ReadFile(c.fs, metaPath)
		if err != nil {
			continue
		}

		var cacheEntry Entry
		if err := json.Unmarshal(metaData, &cacheEntry); err != nil {
			continue
		}

		if now.After(cacheEntry.ExpiresAt) {
			name := strings.TrimSuffix(entry.Name(), ".meta")
			_ = c.fs.Remove(filepath.Join(c.directory, name+".data"))
			_ = c.fs.Remove(metaPath)
		}
	}

	return nil
}

// GetStats returns cache statistics
func (c *FileCache) GetStats(ctx context.Context) (*Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var totalEntries int64

	totalSize, _ := c.calculateSize()

	entries, err := afero.ReadDir(c.fs, c.directory)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".data") {
				totalEntries++
			}
		}
	}

	stats := c.stats
	stats.TotalEntries = totalEntries
	stats.TotalSize = totalSize

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
		stats.MissRate = float64(stats.Misses) / float64(total)
	}

	return &stats, nil
}

// Close stops the background cleanup goroutine
func (c *FileCache) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})

	return nil
}

func (c *FileCache) getFilePath(key string) string {
	return filepath.Join(c.directory, hashKey(key)+".data")
}

func (c *FileCache) getMetaPath(key string) string {
	return filepath.Join(c.directory, hashKey(key)+".meta")
}

// hashKey creates a safe filename from a cache key
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// enforceSize evicts the oldest entries until newEntrySize fits. Callers hold the write lock.
func (c *FileCache) enforceSize(newEntrySize int64) error {
	currentSize, err := c.calculateSize()
	if err != nil {
		return err
	}

	if currentSize+newEntrySize <= c.maxBytes {
		return nil
	}

	entries, err := afero.ReadDir(c.fs, c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	type entryInfo struct {
		name    string
		modTime time.Time
		size    int64
	}

	var infos []entryInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".meta")
		if dataInfo, err := c.fs.Stat(filepath.Join(c.directory, name+".data")); err == nil {
			infos = append(infos, entryInfo{
				name:    name,
				modTime: entry.ModTime(),
				size:    dataInfo.Size(),
			})
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].modTime.Before(infos[j].modTime)
	})

	spaceNeeded := (currentSize + newEntrySize) - c.maxBytes

	var spaceFreed int64

	for _, info := range infos {
		if spaceFreed >= spaceNeeded {
			break
		}

		_ = c.fs.Remove(filepath.Join(c.directory, info.name+".data"))
		_ = c.fs.Remove(filepath.Join(c.directory, info.name+".meta"))

		spaceFreed += info.size
	}

	return nil
}

// calculateSize sums data file sizes. Callers hold a lock.
func (c *FileCache) calculateSize() (int64, error) {
	var totalSize int64

	err := afero.Walk(c.fs, c.directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".data") {
			totalSize += info.Size()
		}

		return nil
	})

	return totalSize, err
}

func (c *FileCache) backgroundCleanup() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Cleanup(context.Background())
		case <-c.stopCleanup:
			return
		}
	}
}
