package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"

	"github.com/velodata-io/strava/internal/auth"
	"github.com/velodata-io/strava/internal/constants"
	"github.com/velodata-io/strava/internal/http"
	"github.com/velodata-io/strava/internal/ratelimit"
	"github.com/velodata-io/strava/pkg/strava"
)

// Client implements the strava.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	engine       *strava.QueryEngine
	cache        strava.Cache
	limiter      *ratelimit.Limiter
	logger       strava.Logger

	// Resource clients
	athlete    strava.AthleteClient
	activities strava.ActivitiesClient
	segments   strava.SegmentsClient
}

// New creates a new Strava API client from config. It loads credentials
// and token state from the configured files when not given inline, builds
// the cache, and downloads (or restores from cache) the API schema.
func New(ctx context.Context, config *strava.Config) (*Client, error) {
	if config == nil {
		return nil, strava.ErrConfigRequired
	}

	logger := config.Logger
	if logger == nil {
		logger = strava.NoopLogger{}
	}

	credentials, err := resolveCredentials(config)
	if err != nil {
		return nil, err
	}

	tokenManager, err := createTokenManager(config, credentials, logger)
	if err != nil {
		return nil, err
	}

	apiEndpoint := config.APIEndpoint
	if apiEndpoint == "" {
		apiEndpoint = strava.DefaultAPIEndpoint
	}

	endpointURL, err := url.Parse(apiEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing API endpoint: %w", err)
	}

	limiter := ratelimit.NewLimiter()

	httpOpts := []http.Option{
		http.WithLogger(logger),
		http.WithDebug(config.Debug),
		http.WithRateLimiter(limiter),
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax > 0 {
		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	if config.HTTPClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(config.HTTPClient))
	}

	httpClient := http.NewClient(apiEndpoint, tokenManager, httpOpts...)

	cache, err := createCache(config)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	schemaURL := config.SchemaURL
	if schemaURL == "" {
		schemaURL = strava.DefaultSchemaURL
	}

	catalog, err := strava.LoadCatalog(ctx, schemaURL, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("loading API schema: %w", err)
	}

	engine := strava.NewQueryEngine(catalog, httpClient, cache, endpointURL.Host, logger)

	c := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		engine:       engine,
		cache:        cache,
		limiter:      limiter,
		logger:       logger,
	}

	c.athlete = NewAthleteClient(engine)
	c.activities = NewActivitiesClient(engine)
	c.segments = NewSegmentsClient(c.activities, logger)

	return c, nil
}

// Athlete returns the athlete resource client.
func (c *Client) Athlete() strava.AthleteClient {
	return c.athlete
}

// Activities returns the activities resource client.
func (c *Client) Activities() strava.ActivitiesClient {
	return c.activities
}

// Segments returns the segments resource client.
func (c *Client) Segments() strava.SegmentsClient {
	return c.segments
}

// Query implements strava.Client.Query.
func (c *Client) Query(ctx context.Context, path string, params map[string]string, opts ...strava.QueryOption) (json.RawMessage, error) {
	return c.engine.Query(ctx, path, params, opts...)
}

// Authorize implements strava.Client.Authorize.
func (c *Client) Authorize(ctx context.Context) error {
	return c.tokenManager.ExpandScope(ctx)
}

// resolveCredentials returns application credentials from config, falling
// back to the client secrets file. Inline values win.
func resolveCredentials(config *strava.Config) (*auth.ClientSecrets, error) {
	if config.ClientID != 0 && config.ClientSecret != "" {
		return &auth.ClientSecrets{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
		}, nil
	}

	if config.ClientSecretsFile != "" {
		secrets, err := auth.LoadClientSecrets(config.ClientSecretsFile)
		if err != nil {
			return nil, err
		}

		if config.ClientID != 0 {
			secrets.ClientID = config.ClientID
		}

		if config.ClientSecret != "" {
			secrets.ClientSecret = config.ClientSecret
		}

		return secrets, nil
	}

	return nil, strava.ErrClientCredentials
}

// createTokenManager builds the OAuth token manager, loading token state
// from the token file when not given inline. A missing refresh token is
// only an error when the browser flow is disabled, since authorization
// can bootstrap the first token pair.
func createTokenManager(config *strava.Config, credentials *auth.ClientSecrets, logger strava.Logger) (auth.TokenManager, error) {
	oauthConfig := &auth.OAuthConfig{
		TokenURL:     config.TokenURL,
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		RefreshToken: config.RefreshToken,
		AccessToken:  config.AccessToken,
		ExpiresAt:    config.ExpiresAt,
		Scopes:       strava.DefaultScopes,
		Logger:       logger,
	}

	if oauthConfig.TokenURL == "" {
		oauthConfig.TokenURL = strava.DefaultTokenURL
	}

	if oauthConfig.RefreshToken == "" && config.TokenFile != "" {
		token, err := auth.LoadTokenFile(config.TokenFile)

		switch {
		case err == nil:
			oauthConfig.RefreshToken = token.RefreshToken
			oauthConfig.AccessToken = token.AccessToken
			oauthConfig.ExpiresAt = token.ExpiresAt
		case errors.Is(err, os.ErrNotExist):
			// No token file yet. The authorization flow creates it.
		default:
			return nil, err
		}
	}

	if config.TokenFile != "" {
		oauthConfig.Persister = &auth.FileTokenPersister{Path: config.TokenFile}
	}

	if !config.NoBrowser {
		authorizeURL := config.AuthorizeURL
		if authorizeURL == "" {
			authorizeURL = strava.DefaultAuthorizeURL
		}

		oauthConfig.Authorizer = &auth.LocalAuthorizer{
			AuthorizeURL: authorizeURL,
			Port:         constants.CallbackPort,
			OpenBrowser:  openBrowser,
			Timeout:      constants.AuthorizeTimeout,
			Logger:       logger,
		}
	}

	if oauthConfig.RefreshToken == "" && oauthConfig.Authorizer == nil {
		return nil, strava.ErrNoRefreshToken
	}

	return auth.NewOAuthTokenManager(oauthConfig), nil
}

// createCache builds the result cache. CacheConfig wins over CacheDir;
// neither set means lookups always miss and nothing is stored.
func createCache(config *strava.Config) (strava.Cache, error) {
	if config.CacheConfig != nil {
		return strava.NewCacheFromConfig(config.CacheConfig)
	}

	if config.CacheDir != "" {
		return strava.NewFileCache(config.CacheDir, strava.DefaultCacheExpiration), nil
	}

	return strava.NewNoOpCache(), nil
}

// openBrowser launches the default browser at url.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	err := cmd.Start()
	if err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}

	return nil
}
