package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velodata-io/strava/internal/client"
	"github.com/velodata-io/strava/pkg/strava"
)

func TestAthleteClient_Get(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns the authenticated athlete", func(t *testing.T) {
		t.Parallel()

		fetcher := newRouteFetcher()
		fetcher.handle("/athlete", `{
			"id": 12345,
			"username": "jruiter",
			"firstname": "Jan",
			"lastname": "de Ruiter",
			"city": "Utrecht"
		}`)

		athletes := client.NewAthleteClient(newTestEngine(t, fetcher))

		athlete, err := athletes.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(12345), athlete.ID)
		assert.Equal(t, "Jan", athlete.FirstName)
		assert.Equal(t, "Utrecht", athlete.City)
	})

	t.Run("repeated gets hit the cache", func(t *testing.T) {
		t.Parallel()

		fetcher := newRouteFetcher()
		fetcher.handle("/athlete", `{"id": 12345}`)

		athletes := client.NewAthleteClient(newTestEngine(t, fetcher))

		_, err := athletes.Get(ctx)
		require.NoError(t, err)
		_, err = athletes.Get(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, fetcher.calls["/athlete"])
	})

	t.Run("surfaces fetch errors", func(t *testing.T) {
		t.Parallel()

		athletes := client.NewAthleteClient(newTestEngine(t, newRouteFetcher()))

		_, err := athletes.Get(ctx)
		require.Error(t, err)
		assert.True(t, strava.IsNotFound(err))
	})

	t.Run("malformed response body", func(t *testing.T) {
		t.Parallel()

		fetcher := newRouteFetcher()
		fetcher.handle("/athlete", `[1, 2, 3]`)

		athletes := client.NewAthleteClient(newTestEngine(t, fetcher))

		_, err := athletes.Get(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing athlete response")
	})
}
