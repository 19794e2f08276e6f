// Package http provides the authorized HTTP client used for all API
// requests. It layers bearer authentication, header-derived rate-limit
// accounting with proactive backoff, and one-shot scope re-authorization on
// top of a retrying transport.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/velodata-io/strava/internal/auth"
	"github.com/velodata-io/strava/internal/constants"
	"github.com/velodata-io/strava/internal/ratelimit"
	"github.com/velodata-io/strava/pkg/strava"
)

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string

	// NoAuthRetry disables the single scope-expansion retry on 401.
	NoAuthRetry bool
	// NoBackoff surfaces 429 responses as errors instead of waiting out
	// the reported quota window.
	NoBackoff bool
	// NoBuffer uses the full quota instead of leaving 20% headroom.
	NoBuffer bool
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client issues authenticated requests against the API.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager auth.TokenManager
	limiter      *ratelimit.Limiter
	logger       strava.Logger
	userAgent    string
	debug        bool
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger strava.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRateLimiter sets the quota tracker consulted before and updated after
// every request.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithRetryConfig tunes the transport-level retry behavior.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithHTTPClient replaces the underlying standard client, keeping the retry
// wrapper.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// NewClient creates a new API client.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil

	// The transport retries only network failures and 5xx responses.
	// 401 and 429 carry auth and quota semantics handled one level up.
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if err != nil {
			return true, nil
		}

		if resp != nil && resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
			return true, nil
		}

		return false, nil
	}

	client := &Client{
		baseURL:      baseURL,
		httpClient:   retryClient,
		tokenManager: tokenManager,
		logger:       strava.NoopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do executes the request, recovering transparently from expired tokens,
// one insufficient-scope rejection, and bounded quota exhaustion.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	attemptAuth := !req.NoAuthRetry && c.tokenManager != nil
	leaveBuffer := !req.NoBuffer
	rateRetries := 0

	for {
		if c.limiter != nil && !req.NoBackoff {
			err := c.limiter.Wait(ctx, leaveBuffer)
			if err != nil {
				return nil, fmt.Errorf("waiting for rate limit: %w", err)
			}
		}

		resp, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}

		// Throttled and error responses carry quota headers too.
		if c.limiter != nil && !c.limiter.Record(resp.Headers) {
			c.logger.Warn("response carried no rate-limit headers", map[string]interface{}{
				"method": req.Method,
				"path":   req.Path,
			})
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.warnIfNearLimit(req, leaveBuffer)

			return resp, nil

		case resp.StatusCode == http.StatusUnauthorized:
			if !attemptAuth {
				return resp, &strava.AuthError{Op: "request", Err: strava.ErrAuthExhausted}
			}

			c.logger.Warn("authorization rejected, attempting to expand scopes", map[string]interface{}{
				"path": req.Path,
			})

			err = c.tokenManager.ExpandScope(ctx)
			if err != nil {
				return resp, err
			}

			// Retry exactly once with the expanded grant.
			attemptAuth = false

		case resp.StatusCode == http.StatusTooManyRequests:
			reset := time.Time{}
			if c.limiter != nil {
				reset = c.limiter.NextReset(leaveBuffer)
			}

			if req.NoBackoff || rateRetries >= constants.RateLimitRetryMax {
				return resp, &strava.RateLimitError{ResetAt: reset}
			}

			rateRetries++

			c.logger.Warn("rate limited, backing off until quota reset", map[string]interface{}{
				"path":    req.Path,
				"reset":   reset,
				"attempt": rateRetries,
			})

			// The recorded headers usually make the next Wait block until
			// the reset. When they do not (server-side throttling ahead of
			// the reported counters), wait out the short window explicitly.
			if c.limiter == nil || !c.limiter.Throttled(leaveBuffer) {
				err = sleepUntil(ctx, ratelimit.ShortWindowReset(time.Now()))
				if err != nil {
					return nil, fmt.Errorf("waiting for rate limit: %w", err)
				}
			}

		default:
			return resp, &strava.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       resp.Body,
				Fault:      strava.ParseFault(resp.Body),
			}
		}
	}
}

// send issues a single HTTP exchange with a fresh bearer token.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader

	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting access token: %w", err)
		}

		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         fullURL,
			"status_code": httpResp.StatusCode,
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

// warnIfNearLimit surfaces quota pressure after successful responses.
func (c *Client) warnIfNearLimit(req *Request, leaveBuffer bool) {
	if c.limiter == nil || !c.limiter.Throttled(leaveBuffer) {
		return
	}

	msg := "rate limit exhausted, next request will wait for the quota reset"
	if leaveBuffer {
		msg = "approaching rate limit, next request will wait for the quota reset"
	}

	c.logger.Warn(msg, map[string]interface{}{
		"path":  req.Path,
		"reset": c.limiter.NextReset(leaveBuffer),
	})
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Fetch implements strava.Fetcher over Do for the caching query engine.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values, opt strava.FetchOptions) ([]byte, error) {
	resp, err := c.Do(ctx, &Request{
		Method:    http.MethodGet,
		Path:      path,
		Query:     query,
		NoBackoff: opt.NoBackoff,
		NoBuffer:  opt.NoBuffer,
	})
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	delay := time.Until(deadline)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)

	select {
	case <-ctx.Done():
		timer.Stop()

		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
