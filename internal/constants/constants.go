package constants

import "time"

// File and directory permissions.
const (
	// SecretsDirPerm is the permission for directories holding credentials.
	SecretsDirPerm = 0750

	// SecretsFilePerm is the permission for credential files.
	SecretsFilePerm = 0600

	// CacheDirPerm is the permission for cache directories.
	CacheDirPerm = 0755

	// CacheFilePerm is the permission for cache content files.
	CacheFilePerm = 0644
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for API requests.
	DefaultHTTPTimeout = 30 * time.Second

	// TokenExchangeTimeout bounds calls to the OAuth token endpoint.
	TokenExchangeTimeout = 10 * time.Second

	// AuthorizeTimeout bounds the interactive browser authorization flow.
	AuthorizeTimeout = 5 * time.Minute
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of transport retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait between transport retries.
	DefaultRetryWaitMax = 30 * time.Second

	// RateLimitRetryMax bounds how many times a 429 response is retried
	// after waiting out the reported quota window.
	RateLimitRetryMax = 3
)

// Token lifecycle.
const (
	// TokenExpirationBuffer is the slack applied before the reported
	// expiration when deciding whether a token is still usable.
	TokenExpirationBuffer = 30 * time.Second
)

// Rate limiting.
const (
	// ShortWindow is the length of the short rate-limit window.
	ShortWindow = 15 * time.Minute

	// RateLimitBufferFraction is the fraction of a quota considered usable
	// when leaving headroom for other clients.
	RateLimitBufferFraction = 0.8
)

// Pagination.
const (
	// ResponsesPerPage is the page size used for paginated endpoints.
	ResponsesPerPage = 200
)

// Caching.
const (
	// CacheExpiration is how long a cached query result stays fresh.
	CacheExpiration = 7 * 24 * time.Hour

	// CreationTimeFileName holds the entry creation time in unix seconds.
	CreationTimeFileName = "creation_time"

	// ContentFileName holds the cached JSON payload.
	ContentFileName = "content.json"

	// DefaultMemoryCacheSize bounds the in-memory cache backend.
	DefaultMemoryCacheSize = 1000
)

// Authorization callback.
const (
	// CallbackPort is the local port the authorization redirect targets.
	CallbackPort = 8001
)
