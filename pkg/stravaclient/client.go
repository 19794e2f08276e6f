// Package stravaclient provides the main entry point for creating Strava API clients
package stravaclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/velodata-io/strava/internal/client"
	"github.com/velodata-io/strava/pkg/strava"
)

// New creates a new Strava API client.
func New(ctx context.Context, config *strava.Config) (strava.Client, error) {
	if config == nil {
		return nil, strava.ErrConfigRequired
	}

	if config.APIEndpoint != "" {
		// Normalize API endpoint
		apiEndpoint := strings.TrimSuffix(config.APIEndpoint, "/")
		if !strings.HasPrefix(apiEndpoint, "http://") && !strings.HasPrefix(apiEndpoint, "https://") {
			apiEndpoint = "https://" + apiEndpoint
		}

		config.APIEndpoint = apiEndpoint
	}

	// Use the internal client implementation
	client, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return client, nil
}

// NewWithSecrets creates a client from a client secrets file and a token
// file, the layout produced by the authorize flow.
func NewWithSecrets(ctx context.Context, secretsFile, tokenFile string) (strava.Client, error) {
	return New(ctx, &strava.Config{
		ClientSecretsFile: secretsFile,
		TokenFile:         tokenFile,
	})
}

// NewWithRefreshToken creates a client from inline application credentials
// and a refresh token. Nothing is persisted between runs.
func NewWithRefreshToken(ctx context.Context, clientID int64, clientSecret, refreshToken string) (strava.Client, error) {
	return New(ctx, &strava.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	})
}
