package strava

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Default Strava v3 endpoints.
const (
	DefaultAPIEndpoint  = "https://www.strava.com/api/v3"
	DefaultTokenURL     = "https://www.strava.com/oauth/token"
	DefaultAuthorizeURL = "https://www.strava.com/oauth/authorize"
	DefaultSchemaURL    = "https://developers.strava.com/swagger/swagger.json"
)

// DefaultScopes are requested when the authorization flow runs.
var DefaultScopes = []string{
	"read",
	"read_all",
	"profile:read_all",
	"activity:read",
	"activity:read_all",
}

// AthleteClient provides access to the authenticated athlete.
type AthleteClient interface {
	Get(ctx context.Context) (*Athlete, error)
}

// ActivitiesClient provides access to the athlete's activities.
type ActivitiesClient interface {
	List(ctx context.Context, opts *ActivityListOptions) ([]SummaryActivity, error)
	Get(ctx context.Context, activityID int64, includeAllEfforts bool) (*DetailedActivity, error)
}

// SegmentsClient provides access to segment data derived from the
// athlete's activities.
type SegmentsClient interface {
	MostFrequented(ctx context.Context, opts *ActivityListOptions) ([]SegmentUsage, error)
}

// Client is a Strava v3 API client.
type Client interface {
	Athlete() AthleteClient
	Activities() ActivitiesClient
	Segments() SegmentsClient

	// Query fetches an arbitrary GET path, validating it against the API
	// schema and caching the result. Paginated paths return the
	// concatenated pages as a single JSON array.
	Query(ctx context.Context, path string, params map[string]string, opts ...QueryOption) (json.RawMessage, error)

	// Authorize runs the browser consent flow to obtain tokens with the
	// default scopes, replacing the current token pair.
	Authorize(ctx context.Context) error
}

// ActivityListOptions narrows an activity listing to a time range.
// Zero values are omitted from the request.
type ActivityListOptions struct {
	// Before selects activities that started before this time.
	Before time.Time
	// After selects activities that started after this time.
	After time.Time
}

// Config represents client configuration for building a strava.Client.
//
// # Credentials
//
// Application credentials can be given inline (ClientID/ClientSecret) or
// loaded from ClientSecretsFile, a JSON file holding client_id and
// client_secret. Inline values win. Token state works the same way:
// RefreshToken/AccessToken inline, or TokenFile pointing at a JSON file
// with refresh_token, access_token, and expiration_time. When TokenFile
// is set the client writes refreshed tokens back to it, so the next run
// picks up where this one left off.
//
// # Caching
//
// CacheDir enables the default file cache under that directory. For
// anything else (memory, NATS JetStream KV, a chain, or none) set
// CacheConfig, which takes precedence.
type Config struct {
	// ClientID: numeric Strava application ID.
	ClientID int64
	// ClientSecret: Strava application secret used with ClientID.
	ClientSecret string
	// ClientSecretsFile: path to a JSON file providing client_id and
	// client_secret when not set inline.
	ClientSecretsFile string

	// RefreshToken: token used to obtain fresh access tokens.
	RefreshToken string
	// AccessToken: optional current access token. Used until it expires,
	// then replaced via RefreshToken.
	AccessToken string
	// ExpiresAt: expiration of AccessToken, if known.
	ExpiresAt time.Time
	// TokenFile: path to a JSON token file read at startup and rewritten
	// after every token exchange.
	TokenFile string

	// APIEndpoint: base URL for the API. Defaults to DefaultAPIEndpoint.
	APIEndpoint string
	// TokenURL: OAuth token endpoint. Defaults to DefaultTokenURL.
	TokenURL string
	// AuthorizeURL: browser consent endpoint. Defaults to DefaultAuthorizeURL.
	AuthorizeURL string
	// SchemaURL: swagger schema location. Defaults to DefaultSchemaURL.
	SchemaURL string

	// CacheDir: directory for the default file cache. Ignored when
	// CacheConfig is set. Empty with a nil CacheConfig disables caching.
	CacheDir string
	// CacheConfig: full cache configuration, overriding CacheDir.
	CacheConfig *CacheConfig

	// RetryMax: maximum retries for transient failures (connection errors
	// and 5xx). If 0, a sensible default is used.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration

	// Debug: enables verbose HTTP request/response logging when a Logger
	// is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and the
	// query engine.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// HTTPClient: overrides the underlying *http.Client, mainly for tests.
	HTTPClient *http.Client
	// NoBrowser: disables the browser consent flow. Requests rejected for
	// missing scopes then fail instead of triggering re-authorization.
	NoBrowser bool
}
