package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/velodata-io/strava/internal/constants"
)

// CacheEntry is a cached query result.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves an entry. Missing, expired and corrupt entries return
	// ErrCacheEntryNotFound, ErrCacheEntryExpired and ErrCacheEntryCorrupt
	// respectively; the query engine treats all three as misses.
	Get(ctx context.Context, key string) (*CacheEntry, error)
	// Set stores an entry, replacing any prior one wholesale.
	Set(ctx context.Context, key string, entry *CacheEntry) error
	// Delete removes an entry.
	Delete(ctx context.Context, key string) error
	// Clear removes all entries.
	Clear(ctx context.Context) error
	// Has reports whether a fresh entry exists.
	Has(ctx context.Context, key string) bool
}

// CacheKey computes the storage key for a query: the API host, the request
// path, and the parameters serialized in sorted key order. Identical logical
// queries always map to the same key regardless of map iteration order.
func CacheKey(host, path string, params map[string]string) string {
	return strings.TrimSuffix(
		host+"/"+strings.Trim(path, "/")+"/"+ParamsString(params),
		"/",
	)
}

// ParamsString serializes params as "k1=v1,k2=v2" with keys sorted. Keys
// and values are query-escaped so the delimiters stay unambiguous: distinct
// parameter maps never serialize to the same string.
func ParamsString(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(params[key]))
	}

	return strings.Join(pairs, ",")
}

// FileCache stores each entry as a directory holding the creation time and
// the JSON payload in separate files. The layout mirrors the cache key:
// <root>/<host>/<path>/<sorted params>/{creation_time,content.json}.
//
// Writes go through temp-file-then-rename with the creation time written
// last, so a crash mid-write leaves an entry a reader classifies as a miss
// rather than producing a truncated-JSON failure.
type FileCache struct {
	root       string
	expiration time.Duration
}

// NewFileCache creates a file cache rooted at dir with the given expiration
// window applied at read time.
func NewFileCache(dir string, expiration time.Duration) *FileCache {
	if expiration <= 0 {
		expiration = constants.CacheExpiration
	}

	return &FileCache{root: dir, expiration: expiration}
}

func (c *FileCache) entryDir(key string) string {
	return filepath.Join(c.root, filepath.FromSlash(key))
}

// Get implements Cache.
func (c *FileCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	dir := c.entryDir(key)

	stampRaw, err := os.ReadFile(filepath.Join(dir, constants.CreationTimeFileName))
	if err != nil {
		return nil, ErrCacheEntryNotFound
	}

	content, err := os.ReadFile(filepath.Join(dir, constants.ContentFileName))
	if err != nil {
		return nil, ErrCacheEntryNotFound
	}

	stamp, err := strconv.ParseFloat(strings.TrimSpace(string(stampRaw)), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad creation time: %v", ErrCacheEntryCorrupt, err)
	}

	if !json.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid JSON", ErrCacheEntryCorrupt)
	}

	createdAt := time.Unix(int64(stamp), 0)
	expiresAt := createdAt.Add(c.expiration)

	if time.Now().After(expiresAt) {
		return nil, ErrCacheEntryExpired
	}

	return &CacheEntry{
		Data:      content,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Set implements Cache.
func (c *FileCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	dir := c.entryDir(key)

	err := os.MkdirAll(dir, constants.CacheDirPerm)
	if err != nil {
		return fmt.Errorf("creating cache entry directory: %w", err)
	}

	err = writeFileAtomic(filepath.Join(dir, constants.ContentFileName), entry.Data)
	if err != nil {
		return fmt.Errorf("writing cache content: %w", err)
	}

	stamp := strconv.FormatInt(entry.CreatedAt.Unix(), 10)

	err = writeFileAtomic(filepath.Join(dir, constants.CreationTimeFileName), []byte(stamp))
	if err != nil {
		return fmt.Errorf("writing cache creation time: %w", err)
	}

	return nil
}

// Delete implements Cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.RemoveAll(c.entryDir(key))
	if err != nil {
		return fmt.Errorf("removing cache entry: %w", err)
	}

	return nil
}

// Clear implements Cache.
func (c *FileCache) Clear(ctx context.Context) error {
	err := os.RemoveAll(c.root)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	return nil
}

// Has implements Cache.
func (c *FileCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("writing temp file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("closing temp file: %w", err)
	}

	err = os.Chmod(tmp.Name(), constants.CacheFilePerm)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("setting file mode: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}

// MemoryCache is a bounded in-memory cache backend.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultMemoryCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheEntryNotFound
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return nil, ErrCacheEntryExpired
	}

	// Copy so callers mutating the result cannot corrupt the stored entry.
	copied := *entry
	copied.Data = append([]byte(nil), entry.Data...)

	return &copied, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		if _, ok := c.entries[key]; !ok {
			c.evictOldest()
		}
	}

	c.entries[key] = entry

	return nil
}

// evictOldest removes the entry closest to expiry. Callers hold c.mu.
func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)

	for key, entry := range c.entries {
		if oldestKey == "" || entry.ExpiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Delete implements Cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)

	return nil
}

// Has implements Cache.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}
