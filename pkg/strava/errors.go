package strava

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// FaultDetail describes one entry of the API's error response body.
type FaultDetail struct {
	Resource string `json:"resource" yaml:"resource"`
	Field    string `json:"field"    yaml:"field"`
	Code     string `json:"code"     yaml:"code"`
}

// Fault is the error payload the API returns alongside non-2xx statuses.
type Fault struct {
	Message string        `json:"message" yaml:"message"`
	Errors  []FaultDetail `json:"errors"  yaml:"errors"`
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if len(f.Errors) == 0 {
		return f.Message
	}

	first := f.Errors[0]

	return fmt.Sprintf("%s: %s %s %s", f.Message, first.Resource, first.Field, first.Code)
}

// ParseFault parses an error response body. A body that is not a fault
// document yields a nil fault, not an error.
func ParseFault(data []byte) *Fault {
	var fault Fault

	err := json.Unmarshal(data, &fault)
	if err != nil || fault.Message == "" {
		return nil
	}

	return &fault
}

// HTTPError is a non-2xx response outside the handled 401/429 cases.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Fault      *Fault
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Fault != nil {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Fault.Error())
	}

	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// AuthError is a failed token exchange, a failed authorization flow, or a
// rejected request that re-authorization could not repair.
type AuthError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization failed during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// ConfigError is a missing or malformed local identity or token file.
type ConfigError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RateLimitError reports an exhausted quota when automatic backoff is
// disabled or its retry budget ran out. ResetAt is the earliest safe retry
// time reported by the limiter, zero when unknown.
type RateLimitError struct {
	ResetAt time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limit exceeded"
	}

	return fmt.Sprintf("rate limit exceeded, resets at %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// InvalidPathError is a query path that matches no known API path pattern.
type InvalidPathError struct {
	Path string
}

// Error implements the error interface.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("%s is not a valid API path", e.Path)
}

// Static errors that can be wrapped with context.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrClientCredentials     = errors.New("client ID and secret are required")
	ErrNoRefreshToken        = errors.New("no refresh token available")
	ErrNoAuthorizer          = errors.New("no authorizer configured for scope expansion")
	ErrAuthorizationDenied   = errors.New("authorization was denied")
	ErrAuthExhausted         = errors.New("request rejected again after scope expansion")
	ErrAuthorizationTimeout  = errors.New("timed out waiting for authorization callback")
	ErrMalformedTokenReply   = errors.New("malformed token exchange response")
	ErrMalformedSchema       = errors.New("malformed API schema document")
	ErrCacheEntryNotFound    = errors.New("cache entry not found")
	ErrCacheEntryExpired     = errors.New("cache entry expired")
	ErrCacheEntryCorrupt     = errors.New("cache entry corrupt")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrPageNotSequence       = errors.New("paginated response page is not a JSON array")
)

// IsAuthError checks whether the error is an authorization failure.
func IsAuthError(err error) bool {
	authErr := &AuthError{}

	return errors.As(err, &authErr)
}

// IsRateLimited checks whether the error is an exhausted rate limit.
func IsRateLimited(err error) bool {
	rlErr := &RateLimitError{}

	return errors.As(err, &rlErr)
}

// IsInvalidPath checks whether the error is an unknown query path.
func IsInvalidPath(err error) bool {
	pathErr := &InvalidPathError{}

	return errors.As(err, &pathErr)
}

// IsNotFound checks whether the error is a 404 response.
func IsNotFound(err error) bool {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound
	}

	return false
}
