// Package stravaclient provides the primary entry point for constructing a
// Strava V3 API client that implements the strava.Client interface.
//
// It layers configuration, HTTP transport, OAuth token management,
// header-driven rate limiting, schema validation, and result caching on top
// of the interfaces and types defined in the strava package. Most
// applications should import stravaclient to build a client, then use the
// returned strava.Client to access the resource clients or the raw Query
// method.
//
// Quick start
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
//
//	  // Credentials and the token file live on disk; the token file is
//	  // rewritten after every refresh so the next run reuses it.
//	  cli, err := stravaclient.New(ctx, &strava.Config{
//	    ClientSecretsFile: "client_secrets.json",
//	    TokenFile:         "token.json",
//	    CacheDir:          "cache",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  athlete, err := cli.Athlete().Get(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = athlete
//
//	  // Raw queries work against any GET path in the API schema. Paginated
//	  // paths are walked to completion and cached wholesale.
//	  data, err := cli.Query(ctx, "/athlete/activities", nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = data
//	}
//
// # Rate limits
//
// The client tracks the quota headers on every response and, by default,
// sleeps through exhausted windows while leaving a fraction of the quota
// unused for other consumers. Per-query options WithoutRateLimitBuffer and
// WithoutBackoff disable these behaviors.
//
// # Helpers
//
// The package also provides convenience constructors NewWithSecrets and
// NewWithRefreshToken that wrap New with the appropriate configuration.
package stravaclient
