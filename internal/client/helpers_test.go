package client_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velodata-io/strava/pkg/strava"
)

const testSchemaDoc = `{
	"paths": {
		"/athlete": {
			"get": {"parameters": []}
		},
		"/athlete/activities": {
			"get": {"parameters": [{"$ref": "#/parameters/page"}]}
		},
		"/activities/{id}": {
			"get": {"parameters": []}
		}
	}
}`

// routeFetcher dispatches to per-path handlers and counts requests.
type routeFetcher struct {
	routes map[string]func(query url.Values) ([]byte, error)
	calls  map[string]int
}

func newRouteFetcher() *routeFetcher {
	return &routeFetcher{
		routes: make(map[string]func(query url.Values) ([]byte, error)),
		calls:  make(map[string]int),
	}
}

func (f *routeFetcher) handle(path string, body string) {
	f.routes[path] = func(url.Values) ([]byte, error) {
		return []byte(body), nil
	}
}

func (f *routeFetcher) handleFunc(path string, fn func(query url.Values) ([]byte, error)) {
	f.routes[path] = fn
}

func (f *routeFetcher) Fetch(ctx context.Context, path string, query url.Values, opt strava.FetchOptions) ([]byte, error) {
	f.calls[path]++

	route, ok := f.routes[path]
	if !ok {
		return nil, &strava.HTTPError{StatusCode: 404}
	}

	return route(query)
}

// pageOnce wraps a single-page list body: page 1 returns body, later
// pages are empty so the engine stops walking.
func pageOnce(body string) func(query url.Values) ([]byte, error) {
	return func(query url.Values) ([]byte, error) {
		if query.Get("page") != "1" {
			return []byte(`[]`), nil
		}

		return []byte(body), nil
	}
}

func newTestEngine(t *testing.T, fetcher strava.Fetcher) *strava.QueryEngine {
	t.Helper()

	catalog, err := strava.BuildCatalog([]byte(testSchemaDoc))
	require.NoError(t, err)

	return strava.NewQueryEngine(catalog, fetcher, strava.NewMemoryCache(32), "www.strava.com", nil)
}
