package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velodata-io/strava/internal/auth"
	"github.com/velodata-io/strava/internal/client"
	"github.com/velodata-io/strava/pkg/strava"
)

func newSchemaServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testSchemaDoc))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestNew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(ctx, nil)
		assert.ErrorIs(t, err, strava.ErrConfigRequired)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(ctx, &strava.Config{RefreshToken: "refresh"})
		assert.ErrorIs(t, err, strava.ErrClientCredentials)
	})

	t.Run("missing refresh token with browser flow disabled", func(t *testing.T) {
		t.Parallel()

		_, err := client.New(ctx, &strava.Config{
			ClientID:     12345,
			ClientSecret: "secret",
			NoBrowser:    true,
		})
		assert.ErrorIs(t, err, strava.ErrNoRefreshToken)
	})

	t.Run("constructs a working client", func(t *testing.T) {
		t.Parallel()

		schema := newSchemaServer(t)

		c, err := client.New(ctx, &strava.Config{
			ClientID:     12345,
			ClientSecret: "secret",
			RefreshToken: "refresh",
			SchemaURL:    schema.URL + "/swagger.json",
			CacheConfig:  &strava.CacheConfig{Type: strava.CacheTypeMemory},
			NoBrowser:    true,
		})
		require.NoError(t, err)
		assert.NotNil(t, c.Athlete())
		assert.NotNil(t, c.Activities())
		assert.NotNil(t, c.Segments())
	})

	t.Run("loads credentials from the secrets file", func(t *testing.T) {
		t.Parallel()

		schema := newSchemaServer(t)

		secretsFile := t.TempDir() + "/client_secrets.json"
		require.NoError(t, auth.SaveClientSecrets(secretsFile, &auth.ClientSecrets{
			ClientID:     12345,
			ClientSecret: "secret",
		}))

		_, err := client.New(ctx, &strava.Config{
			ClientSecretsFile: secretsFile,
			RefreshToken:      "refresh",
			SchemaURL:         schema.URL + "/swagger.json",
			NoBrowser:         true,
		})
		require.NoError(t, err)
	})

	t.Run("restores token state from the token file", func(t *testing.T) {
		t.Parallel()

		schema := newSchemaServer(t)

		tokenFile := t.TempDir() + "/strava_token.json"
		persister := &auth.FileTokenPersister{Path: tokenFile}
		require.NoError(t, persister.Persist(&auth.Token{RefreshToken: "stored-refresh"}))

		_, err := client.New(ctx, &strava.Config{
			ClientID:     12345,
			ClientSecret: "secret",
			TokenFile:    tokenFile,
			SchemaURL:    schema.URL + "/swagger.json",
			NoBrowser:    true,
		})
		require.NoError(t, err)
	})

	t.Run("missing token file is tolerated when authorization can run", func(t *testing.T) {
		t.Parallel()

		schema := newSchemaServer(t)

		_, err := client.New(ctx, &strava.Config{
			ClientID:     12345,
			ClientSecret: "secret",
			TokenFile:    t.TempDir() + "/strava_token.json",
			SchemaURL:    schema.URL + "/swagger.json",
		})
		require.NoError(t, err)
	})

	t.Run("unreachable schema endpoint", func(t *testing.T) {
		t.Parallel()

		schema := newSchemaServer(t)
		schema.Close()

		_, err := client.New(ctx, &strava.Config{
			ClientID:     12345,
			ClientSecret: "secret",
			RefreshToken: "refresh",
			SchemaURL:    schema.URL + "/swagger.json",
			NoBrowser:    true,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading API schema")
	})
}
