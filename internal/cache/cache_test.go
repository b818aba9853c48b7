package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemCache(t *testing.T, maxSizeMB int) *FileCache {
	t.Helper()

	c, err := NewFileCacheWithFs(afero.NewMemMapFs(), "/cache", maxSizeMB, time.Hour, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestFileCache_BasicOperations(t *testing.T) {
	c := newMemCache(t, 10)
	ctx := context.Background()

	payload := []byte(`{"items":[{"identificador_tabela":"uso_solo_2021"}]}`)
	require.NoError(t, c.Set(ctx, "catalog:http://api", payload, time.Hour))

	got, err := c.Get(ctx, "catalog:http://api")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, c.Delete(ctx, "catalog:http://api"))

	_, err = c.Get(ctx, "catalog:http://api")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestFileCache_OnDisk(t *testing.T) {
	c, err := NewFileCache(t.TempDir(), 10, time.Hour, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestFileCache_TTL(t *testing.T) {
	c := newMemCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ttl", []byte("data"), 50*time.Millisecond))

	_, err := c.Get(ctx, "ttl")
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	_, err = c.Get(ctx, "ttl")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestFileCache_SizeLimit(t *testing.T) {
	c := newMemCache(t, 1)
	ctx := context.Background()

	large := make([]byte, 512*1024)
	for i := range 3 {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("large%d", i), large, time.Hour))
		time.Sleep(5 * time.Millisecond)
	}

	size, err := c.Size(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, size, int64(1024*1024))

	// The newest entry survives eviction
	_, err = c.Get(ctx, "large2")
	assert.NoError(t, err)
}

func TestFileCache_Stats(t *testing.T) {
	c := newMemCache(t, 10)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("data"), time.Hour))
	}

	for i := range 3 {
		_, err := c.Get(ctx, fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
	}

	for i := 10; i < 12; i++ {
		_, err := c.Get(ctx, fmt.Sprintf("key-%d", i))
		require.Error(t, err)
	}

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.TotalEntries)
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.InDelta(t, 0.6, stats.HitRate, 1e-9)
	assert.Equal(t, int64(20), stats.TotalSize)
}

func TestFileCache_CleanupAndClear(t *testing.T) {
	c := newMemCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("a"), 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "long", []byte("b"), time.Hour))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Cleanup(ctx))

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalEntries)

	require.NoError(t, c.Clear(ctx))

	stats, err = c.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
	assert.Zero(t, stats.Hits)
}

func TestFileCache_CancelledContext(t *testing.T) {
	c := newMemCache(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), context.Canceled)
}
