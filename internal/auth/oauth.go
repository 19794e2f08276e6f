package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/velodata-io/strava/internal/constants"
	"github.com/velodata-io/strava/pkg/strava"
)

// TokenManager provides valid access tokens and drives re-authorization.
type TokenManager interface {
	// GetToken returns a valid access token, refreshing it first when the
	// stored one has expired or none is held yet.
	GetToken(ctx context.Context) (string, error)
	// RefreshToken forces a refresh-token exchange regardless of expiry.
	RefreshToken(ctx context.Context) error
	// ExpandScope runs the interactive authorization flow and exchanges the
	// resulting code for a token with broader scopes.
	ExpandScope(ctx context.Context) error
	// SetToken manually sets the access token.
	SetToken(token string, expiresAt time.Time)
}

// TokenPersister persists a token after every successful exchange.
type TokenPersister interface {
	Persist(token *Token) error
}

// OAuthConfig configures an OAuthTokenManager.
type OAuthConfig struct {
	TokenURL     string
	ClientID     int64
	ClientSecret string
	RefreshToken string
	AccessToken  string
	ExpiresAt    time.Time
	Scopes       []string

	// HTTPClient is used for token endpoint calls. Defaults to a client
	// with the token exchange timeout.
	HTTPClient *http.Client

	Persister  TokenPersister
	Authorizer Authorizer
	Logger     strava.Logger
}

// OAuthTokenManager exchanges refresh tokens and authorization codes for
// access tokens and persists every successful exchange.
//
// Refreshes are single-flight: concurrent callers that find an expired token
// serialize on the manager mutex and the late ones observe the fresh token
// instead of issuing a redundant exchange.
type OAuthTokenManager struct {
	config     *OAuthConfig
	store      *TokenStore
	httpClient *http.Client
	logger     strava.Logger

	mu sync.Mutex
}

// wire format of the token endpoint response
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewOAuthTokenManager creates a token manager from config.
func NewOAuthTokenManager(config *OAuthConfig) *OAuthTokenManager {
	store := NewTokenStore()

	if config.AccessToken != "" || config.RefreshToken != "" {
		store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "bearer",
			ExpiresAt:    config.ExpiresAt,
		})
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.TokenExchangeTimeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = strava.NoopLogger{}
	}

	return &OAuthTokenManager{
		config:     config,
		store:      store,
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetToken returns a valid access token, refreshing if necessary.
func (m *OAuthTokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	err := m.refresh(ctx)
	if err != nil {
		return "", err
	}

	return m.store.Get().AccessToken, nil
}

// RefreshToken forces a refresh-token exchange.
func (m *OAuthTokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refresh(ctx)
}

// refresh exchanges the current refresh token. Callers hold m.mu.
func (m *OAuthTokenManager) refresh(ctx context.Context) error {
	refreshToken := m.currentRefreshToken()
	if refreshToken == "" {
		return &strava.AuthError{Op: "token refresh", Err: strava.ErrNoRefreshToken}
	}

	m.logger.Debug("access token expired or missing, exchanging refresh token", nil)

	return m.exchange(ctx, "token refresh", map[string]interface{}{
		"client_id":     m.config.ClientID,
		"client_secret": m.config.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

// ExpandScope drives the interactive authorization flow and exchanges the
// resulting code. It must not be invoked more than once per originating
// request; the HTTP client enforces that.
func (m *OAuthTokenManager) ExpandScope(ctx context.Context) error {
	if m.config.Authorizer == nil {
		return &strava.AuthError{Op: "scope expansion", Err: strava.ErrNoAuthorizer}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.config.Authorizer.Authorize(ctx, &AuthorizeRequest{
		ClientID: m.config.ClientID,
		Scopes:   m.config.Scopes,
	})
	if err != nil {
		return &strava.AuthError{Op: "scope expansion", Err: err}
	}

	err = m.exchange(ctx, "scope expansion", map[string]interface{}{
		"client_id":     m.config.ClientID,
		"client_secret": m.config.ClientSecret,
		"grant_type":    "authorization_code",
		"code":          result.Code,
	})
	if err != nil {
		return err
	}

	m.logger.Info("authorization granted", map[string]interface{}{
		"scopes": strings.Join(result.Scopes, ","),
	})

	return nil
}

// SetToken manually sets the access token.
func (m *OAuthTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{
		AccessToken:  token,
		RefreshToken: m.currentRefreshToken(),
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	})
}

func (m *OAuthTokenManager) currentRefreshToken() string {
	if token := m.store.Get(); token != nil && token.RefreshToken != "" {
		return token.RefreshToken
	}

	return m.config.RefreshToken
}

// exchange performs a token endpoint call, updates the store and persists
// the result. The refresh token may rotate on every exchange; the rotated
// value is persisted before the new token is handed out.
func (m *OAuthTokenManager) exchange(ctx context.Context, op string, grant map[string]interface{}) error {
	payload, err := json.Marshal(grant)
	if err != nil {
		return &strava.AuthError{Op: op, Err: fmt.Errorf("encoding token request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return &strava.AuthError{Op: op, Err: fmt.Errorf("building token request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &strava.AuthError{Op: op, Err: fmt.Errorf("calling token endpoint: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &strava.AuthError{Op: op, Err: fmt.Errorf("reading token response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &strava.AuthError{Op: op, Err: fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var reply tokenResponse

	err = json.Unmarshal(body, &reply)
	if err != nil {
		return &strava.AuthError{Op: op, Err: fmt.Errorf("%w: %v", strava.ErrMalformedTokenReply, err)}
	}

	if reply.AccessToken == "" || reply.RefreshToken == "" {
		return &strava.AuthError{Op: op, Err: strava.ErrMalformedTokenReply}
	}

	expiresAt := time.Unix(reply.ExpiresAt, 0)
	if reply.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(reply.ExpiresIn) * time.Second)
	}

	token := &Token{
		AccessToken:  reply.AccessToken,
		RefreshToken: reply.RefreshToken,
		TokenType:    reply.TokenType,
		ExpiresIn:    reply.ExpiresIn,
		ExpiresAt:    expiresAt,
	}

	m.store.Set(token)

	m.logger.Debug("token exchange succeeded", map[string]interface{}{
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})

	// The expiration timestamp changes on every exchange even when the
	// tokens themselves do not, so always write the file back out.
	if m.config.Persister != nil {
		err = m.config.Persister.Persist(token)
		if err != nil {
			return &strava.AuthError{Op: op, Err: fmt.Errorf("persisting token: %w", err)}
		}
	}

	return nil
}
