package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// PathDescriptor describes one queryable API path.
type PathDescriptor struct {
	// Pattern is the path pattern, possibly containing {placeholder}
	// segments, e.g. "/activities/{id}".
	Pattern string

	// Paginated reports whether GET requests against the path take page
	// parameters and must be fetched page by page.
	Paginated bool
}

// Catalog maps the API's published path patterns to pagination metadata.
// It is built once from the schema document and read-only afterwards.
type Catalog struct {
	// patterns in sorted order so Lookup is deterministic. The published
	// patterns are mutually exclusive by construction, so ordering only
	// matters for reproducibility, not correctness.
	patterns    []string
	descriptors map[string]PathDescriptor
}

// schemaDocument is the subset of the swagger document the catalog needs.
type schemaDocument struct {
	Paths map[string]map[string]schemaOperation `json:"paths"`
}

type schemaOperation struct {
	Parameters []schemaParameter `json:"parameters"`
}

type schemaParameter struct {
	Ref string `json:"$ref"`
}

// BuildCatalog parses the schema document and extracts, for every path with
// a GET operation, whether any declared parameter references a page-style
// construct. Paths without a GET operation are not queryable and skipped.
func BuildCatalog(doc []byte) (*Catalog, error) {
	var schema schemaDocument

	err := json.Unmarshal(doc, &schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}

	if len(schema.Paths) == 0 {
		return nil, fmt.Errorf("%w: no paths declared", ErrMalformedSchema)
	}

	catalog := &Catalog{
		descriptors: make(map[string]PathDescriptor, len(schema.Paths)),
	}

	for pattern, operations := range schema.Paths {
		get, ok := operations["get"]
		if !ok {
			continue
		}

		paginated := false

		for _, param := range get.Parameters {
			// The page and per-page parameters are declared as shared
			// references; both reference names end in "age".
			if param.Ref != "" && strings.HasSuffix(param.Ref, "age") {
				paginated = true

				break
			}
		}

		catalog.patterns = append(catalog.patterns, pattern)
		catalog.descriptors[pattern] = PathDescriptor{
			Pattern:   pattern,
			Paginated: paginated,
		}
	}

	sort.Strings(catalog.patterns)

	return catalog, nil
}

// Len returns the number of queryable paths.
func (c *Catalog) Len() int {
	return len(c.patterns)
}

// Lookup matches a concrete request path against the known patterns,
// returning its descriptor. Unknown paths fail with InvalidPathError.
func (c *Catalog) Lookup(path string) (PathDescriptor, error) {
	for _, pattern := range c.patterns {
		if matchPath(pattern, path) {
			return c.descriptors[pattern], nil
		}
	}

	return PathDescriptor{}, &InvalidPathError{Path: path}
}

// matchPath compares a pattern and a concrete path segment by segment.
// A {placeholder} segment matches any single concrete segment; literal
// segments must match exactly.
func matchPath(pattern, path string) bool {
	patternSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")

	if len(patternSegs) != len(pathSegs) {
		return false
	}

	for i, seg := range patternSegs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}

		if seg != pathSegs[i] {
			return false
		}
	}

	return true
}

// LoadCatalog fetches the schema document and builds the catalog. The
// document itself goes through the cache with the standard expiration
// window, so repeated startups do not refetch it.
func LoadCatalog(ctx context.Context, schemaURL string, cache Cache, logger Logger) (*Catalog, error) {
	if logger == nil {
		logger = NoopLogger{}
	}

	parsed, err := url.Parse(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("parsing schema URL: %w", err)
	}

	key := CacheKey(parsed.Host, parsed.Path, nil)

	if cache != nil {
		entry, cacheErr := cache.Get(ctx, key)
		if cacheErr == nil {
			return BuildCatalog(entry.Data)
		}
	}

	doc, err := fetchSchema(ctx, schemaURL)
	if err != nil {
		return nil, err
	}

	catalog, err := BuildCatalog(doc)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		now := time.Now()

		cacheErr := cache.Set(ctx, key, &CacheEntry{
			Data:      doc,
			CreatedAt: now,
			ExpiresAt: now.Add(DefaultCacheExpiration),
		})
		if cacheErr != nil {
			logger.Warn("failed to cache schema document", map[string]interface{}{
				"error": cacheErr.Error(),
			})
		}
	}

	logger.Debug("loaded API schema", map[string]interface{}{
		"paths": catalog.Len(),
	})

	return catalog, nil
}

// fetchSchema retrieves the schema document. The schema endpoint is public
// and needs no authorization.
func fetchSchema(ctx context.Context, schemaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, schemaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building schema request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching schema: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode}
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	return doc, nil
}
