// Package strava provides types, interfaces, and helpers for working with
// the Strava V3 API.
//
// # Overview
//
// The strava package defines the domain types (e.g., Athlete,
// SummaryActivity, Segment), the resource client interfaces
// (AthleteClient, ActivitiesClient, SegmentsClient), the caching layer
// (Cache and its file, memory, NATS, and chain implementations), the API
// schema catalog, and the query engine that ties them together. A concrete
// implementation of the Client interface is provided by the stravaclient
// package, which wires configuration, transport, authentication, and rate
// limiting. Most consumers should import stravaclient to construct a
// client and then interact with the interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/velodata-io/strava/pkg/strava"
//	  "github.com/velodata-io/strava/pkg/stravaclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := stravaclient.New(ctx, &strava.Config{
//	    ClientSecretsFile: "client_secrets.json",
//	    TokenFile:         "token.json",
//	    CacheDir:          "cache",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  activities, err := cli.Activities().List(ctx, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = activities
//	}
//
// # Queries and caching
//
// Client.Query accepts any GET path present in the API schema. Results are
// cached under a key derived from the endpoint host, the path, and the
// sorted query parameters, and served from the cache until they expire.
// Paginated paths are fetched page by page and stored as one concatenated
// JSON array, so an expensive walk over hundreds of activities happens at
// most once per expiration window.
//
// # Errors
//
// Failures carry typed errors: HTTPError for API rejections, AuthError for
// token lifecycle failures, RateLimitError for exhausted quotas, and
// InvalidPathError for paths the schema does not know. Helpers IsNotFound,
// IsAuthError, IsRateLimited, and IsInvalidPath wrap the errors.As
// boilerplate.
package strava
