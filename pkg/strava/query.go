package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/velodata-io/strava/internal/constants"
)

// DefaultCacheExpiration is how long cached query results stay fresh.
const DefaultCacheExpiration = constants.CacheExpiration

// ResponsesPerPage is the page size used when walking paginated paths.
const ResponsesPerPage = constants.ResponsesPerPage

// FetchOptions carries per-request rate-limit knobs down to the
// authorized client.
type FetchOptions struct {
	// NoBuffer uses the full quota instead of leaving 20% headroom.
	NoBuffer bool
	// NoBackoff surfaces quota exhaustion as an error instead of waiting.
	NoBackoff bool
}

// Fetcher issues authorized GET requests against the API.
type Fetcher interface {
	Fetch(ctx context.Context, path string, query url.Values, opt FetchOptions) ([]byte, error)
}

// QueryOption tunes a single query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	forceRefresh bool
	fetch        FetchOptions
}

// WithForceRefresh bypasses any cached entry and refetches.
func WithForceRefresh() QueryOption {
	return func(o *queryOptions) {
		o.forceRefresh = true
	}
}

// WithoutRateLimitBuffer allows the query to consume the full quota.
func WithoutRateLimitBuffer() QueryOption {
	return func(o *queryOptions) {
		o.fetch.NoBuffer = true
	}
}

// WithoutBackoff makes quota exhaustion surface as a RateLimitError
// instead of blocking until the quota resets.
func WithoutBackoff() QueryOption {
	return func(o *queryOptions) {
		o.fetch.NoBackoff = true
	}
}

// QueryEngine validates request paths against the schema catalog, fetches
// single or paginated results through the authorized client, and serves
// and stores results in a cache keyed by path and sorted parameters.
type QueryEngine struct {
	catalog *Catalog
	fetcher Fetcher
	cache   Cache
	host    string
	logger  Logger
	now     func() time.Time
}

// NewQueryEngine creates a query engine. host namespaces cache keys so
// caches survive pointing the client at a different API deployment.
func NewQueryEngine(catalog *Catalog, fetcher Fetcher, cache Cache, host string, logger Logger) *QueryEngine {
	if cache == nil {
		cache = NewNoOpCache()
	}

	if logger == nil {
		logger = NoopLogger{}
	}

	return &QueryEngine{
		catalog: catalog,
		fetcher: fetcher,
		cache:   cache,
		host:    host,
		logger:  logger,
		now:     time.Now,
	}
}

// Query fetches the JSON result for a path, serving it from the cache when
// a fresh entry exists. Paginated paths are walked page by page and the
// concatenated result is cached wholesale; a failure mid-walk caches
// nothing.
func (e *QueryEngine) Query(ctx context.Context, path string, params map[string]string, opts ...QueryOption) (json.RawMessage, error) {
	var options queryOptions

	for _, opt := range opts {
		opt(&options)
	}

	descriptor, err := e.catalog.Lookup(path)
	if err != nil {
		return nil, err
	}

	key := CacheKey(e.host, path, params)

	if !options.forceRefresh {
		entry, cacheErr := e.cache.Get(ctx, key)
		if cacheErr == nil {
			e.logger.Debug("serving cached result", map[string]interface{}{
				"path":       path,
				"params":     ParamsString(params),
				"created_at": entry.CreatedAt,
			})

			return entry.Data, nil
		}

		if errors.Is(cacheErr, ErrCacheEntryCorrupt) {
			e.logger.Warn("discarding corrupt cache entry", map[string]interface{}{
				"path":  path,
				"error": cacheErr.Error(),
			})

			_ = e.cache.Delete(ctx, key)
		}
	}

	var result []byte

	if descriptor.Paginated {
		result, err = e.fetchPaginated(ctx, path, params, options.fetch)
	} else {
		result, err = e.fetchSingle(ctx, path, params, options.fetch)
	}

	if err != nil {
		return nil, err
	}

	now := e.now()

	err = e.cache.Set(ctx, key, &CacheEntry{
		Data:      result,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultCacheExpiration),
	})
	if err != nil {
		// A failed cache write degrades future queries, not this one.
		e.logger.Warn("failed to cache query result", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}

	return result, nil
}

func (e *QueryEngine) fetchSingle(ctx context.Context, path string, params map[string]string, opt FetchOptions) ([]byte, error) {
	return e.fetcher.Fetch(ctx, path, paramsValues(params), opt)
}

// fetchPaginated walks pages in increasing order until an empty page
// signals completion. Pages are strictly sequential: each page's existence
// depends on the previous one being non-empty.
func (e *QueryEngine) fetchPaginated(ctx context.Context, path string, params map[string]string, opt FetchOptions) ([]byte, error) {
	var items []json.RawMessage

	lastReport := e.now()

	for page := 1; ; page++ {
		query := paramsValues(params)
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(ResponsesPerPage))

		body, err := e.fetcher.Fetch(ctx, path, query, opt)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d of %s: %w", page, path, err)
		}

		var pageItems []json.RawMessage

		err = json.Unmarshal(body, &pageItems)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", ErrPageNotSequence, path, page, err)
		}

		if len(pageItems) == 0 {
			break
		}

		items = append(items, pageItems...)

		if now := e.now(); now.Sub(lastReport) > 5*time.Second {
			e.logger.Info("still querying", map[string]interface{}{
				"path":     path,
				"received": len(items),
			})

			lastReport = now
		}
	}

	if items == nil {
		items = []json.RawMessage{}
	}

	result, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("assembling paginated result: %w", err)
	}

	return result, nil
}

func paramsValues(params map[string]string) url.Values {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	return values
}
