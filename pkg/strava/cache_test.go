package strava_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velodata-io/strava/pkg/strava"
)

func TestCacheKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		host     string
		path     string
		params   map[string]string
		expected string
	}{
		{
			name:     "path without params",
			host:     "www.strava.com",
			path:     "/athlete",
			params:   nil,
			expected: "www.strava.com/athlete",
		},
		{
			name:     "params in sorted key order",
			host:     "www.strava.com",
			path:     "/athlete/activities",
			params:   map[string]string{"per_page": "200", "include_all_efforts": "true"},
			expected: "www.strava.com/athlete/activities/include_all_efforts=true,per_page=200",
		},
		{
			name:     "trailing path slash is normalized",
			host:     "www.strava.com",
			path:     "/athlete/",
			params:   nil,
			expected: "www.strava.com/athlete",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, strava.CacheKey(tt.host, tt.path, tt.params))
		})
	}

	t.Run("delimiters in values cannot collide distinct queries", func(t *testing.T) {
		t.Parallel()

		smuggled := strava.CacheKey("host", "/path", map[string]string{"a": "1,b=2"})
		separate := strava.CacheKey("host", "/path", map[string]string{"a": "1", "b": "2"})

		assert.NotEqual(t, smuggled, separate)
	})

	t.Run("independent of map iteration order", func(t *testing.T) {
		t.Parallel()

		params := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4", "e": "5"}
		first := strava.CacheKey("host", "/path", params)

		for i := 0; i < 20; i++ {
			assert.Equal(t, first, strava.CacheKey("host", "/path", params))
		}
	})
}

func TestFileCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewFileCache(t.TempDir(), time.Hour)
		key := strava.CacheKey("www.strava.com", "/athlete", nil)

		now := time.Now()
		err := cache.Set(ctx, key, &strava.CacheEntry{
			Data:      []byte(`{"id": 42}`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		})
		require.NoError(t, err)

		entry, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": 42}`, string(entry.Data))
		assert.Equal(t, now.Unix(), entry.CreatedAt.Unix())
		assert.True(t, cache.Has(ctx, key))
	})

	t.Run("entry layout on disk", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		cache := strava.NewFileCache(root, time.Hour)
		key := strava.CacheKey("www.strava.com", "/athlete/activities", map[string]string{"after": "100"})

		now := time.Now()
		require.NoError(t, cache.Set(ctx, key, &strava.CacheEntry{
			Data:      []byte(`[]`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		entryDir := filepath.Join(root, "www.strava.com", "athlete", "activities", "after=100")
		assert.FileExists(t, filepath.Join(entryDir, "content.json"))
		assert.FileExists(t, filepath.Join(entryDir, "creation_time"))
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewFileCache(t.TempDir(), time.Hour)

		_, err := cache.Get(ctx, "www.strava.com/athlete")
		assert.ErrorIs(t, err, strava.ErrCacheEntryNotFound)
		assert.False(t, cache.Has(ctx, "www.strava.com/athlete"))
	})

	t.Run("expired entry", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewFileCache(t.TempDir(), time.Hour)
		key := "www.strava.com/athlete"

		old := time.Now().Add(-2 * time.Hour)
		require.NoError(t, cache.Set(ctx, key, &strava.CacheEntry{
			Data:      []byte(`{}`),
			CreatedAt: old,
			ExpiresAt: old.Add(time.Hour),
		}))

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, strava.ErrCacheEntryExpired)
	})

	t.Run("corrupt creation time", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		cache := strava.NewFileCache(root, time.Hour)
		key := "www.strava.com/athlete"

		now := time.Now()
		require.NoError(t, cache.Set(ctx, key, &strava.CacheEntry{
			Data:      []byte(`{}`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		stampPath := filepath.Join(root, "www.strava.com", "athlete", "creation_time")
		require.NoError(t, os.WriteFile(stampPath, []byte("not-a-number"), 0644))

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, strava.ErrCacheEntryCorrupt)
	})

	t.Run("corrupt content", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		cache := strava.NewFileCache(root, time.Hour)
		key := "www.strava.com/athlete"

		now := time.Now()
		require.NoError(t, cache.Set(ctx, key, &strava.CacheEntry{
			Data:      []byte(`{}`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		contentPath := filepath.Join(root, "www.strava.com", "athlete", "content.json")
		require.NoError(t, os.WriteFile(contentPath, []byte(`{"truncated`), 0644))

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, strava.ErrCacheEntryCorrupt)
	})

	t.Run("delete and clear", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewFileCache(t.TempDir(), time.Hour)
		now := time.Now()

		for i := 0; i < 3; i++ {
			key := fmt.Sprintf("www.strava.com/activities/%d", i)
			require.NoError(t, cache.Set(ctx, key, &strava.CacheEntry{
				Data:      []byte(`{}`),
				CreatedAt: now,
				ExpiresAt: now.Add(time.Hour),
			}))
		}

		require.NoError(t, cache.Delete(ctx, "www.strava.com/activities/0"))
		assert.False(t, cache.Has(ctx, "www.strava.com/activities/0"))
		assert.True(t, cache.Has(ctx, "www.strava.com/activities/1"))

		require.NoError(t, cache.Clear(ctx))
		assert.False(t, cache.Has(ctx, "www.strava.com/activities/1"))
		assert.False(t, cache.Has(ctx, "www.strava.com/activities/2"))
	})

	t.Run("overwrite replaces wholesale", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewFileCache(t.TempDir(), time.Hour)
		key := "www.strava.com/athlete"
		now := time.Now()

		require.NoError(t, cache.Set(ctx, key, &strava.CacheEntry{
			Data:      []byte(`{"v": 1}`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))
		require.NoError(t, cache.Set(ctx, key, &strava.CacheEntry{
			Data:      []byte(`{"v": 2}`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		entry, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v": 2}`, string(entry.Data))
	})
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("round trip and expiry", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewMemoryCache(10)
		now := time.Now()

		require.NoError(t, cache.Set(ctx, "key", &strava.CacheEntry{
			Data:      []byte(`{}`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))
		assert.True(t, cache.Has(ctx, "key"))

		require.NoError(t, cache.Set(ctx, "stale", &strava.CacheEntry{
			Data:      []byte(`{}`),
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(-time.Hour),
		}))

		_, err := cache.Get(ctx, "stale")
		assert.ErrorIs(t, err, strava.ErrCacheEntryExpired)
	})

	t.Run("mutating a returned entry leaves the stored copy intact", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewMemoryCache(10)
		now := time.Now()

		require.NoError(t, cache.Set(ctx, "key", &strava.CacheEntry{
			Data:      []byte(`{"id": 1}`),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		entry, err := cache.Get(ctx, "key")
		require.NoError(t, err)

		for i := range entry.Data {
			entry.Data[i] = 'x'
		}

		entry, err = cache.Get(ctx, "key")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": 1}`, string(entry.Data))
	})

	t.Run("evicts the entry closest to expiry when full", func(t *testing.T) {
		t.Parallel()

		cache := strava.NewMemoryCache(2)
		now := time.Now()

		require.NoError(t, cache.Set(ctx, "soon", &strava.CacheEntry{
			Data: []byte(`{}`), CreatedAt: now, ExpiresAt: now.Add(time.Minute),
		}))
		require.NoError(t, cache.Set(ctx, "later", &strava.CacheEntry{
			Data: []byte(`{}`), CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))
		require.NoError(t, cache.Set(ctx, "newest", &strava.CacheEntry{
			Data: []byte(`{}`), CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))

		assert.False(t, cache.Has(ctx, "soon"))
		assert.True(t, cache.Has(ctx, "later"))
		assert.True(t, cache.Has(ctx, "newest"))
	})
}
