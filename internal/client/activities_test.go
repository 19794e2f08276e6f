package client_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velodata-io/strava/internal/client"
	"github.com/velodata-io/strava/pkg/strava"
)

func TestActivitiesClient_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("lists activities", func(t *testing.T) {
		t.Parallel()

		fetcher := newRouteFetcher()
		fetcher.handleFunc("/athlete/activities", pageOnce(`[
			{"id": 1, "name": "Morning Ride", "sport_type": "Ride", "distance": 25000.5},
			{"id": 2, "name": "Lunch Run", "sport_type": "Run", "distance": 8000}
		]`))

		activities := client.NewActivitiesClient(newTestEngine(t, fetcher))

		result, err := activities.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "Morning Ride", result[0].Name)
		assert.InDelta(t, 25000.5, result[0].Distance, 0.01)
		assert.Equal(t, "Run", result[1].SportType)
	})

	t.Run("passes the time range as epoch seconds", func(t *testing.T) {
		t.Parallel()

		var seen url.Values

		fetcher := newRouteFetcher()
		fetcher.handleFunc("/athlete/activities", func(query url.Values) ([]byte, error) {
			if seen == nil {
				seen = query
			}

			return []byte(`[]`), nil
		})

		activities := client.NewActivitiesClient(newTestEngine(t, fetcher))

		_, err := activities.List(ctx, &strava.ActivityListOptions{
			After:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			Before: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, "1672531200", seen.Get("after"))
		assert.Equal(t, "1688169600", seen.Get("before"))
	})

	t.Run("empty range is an empty slice", func(t *testing.T) {
		t.Parallel()

		fetcher := newRouteFetcher()
		fetcher.handleFunc("/athlete/activities", pageOnce(`[]`))

		activities := client.NewActivitiesClient(newTestEngine(t, fetcher))

		result, err := activities.List(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestActivitiesClient_Get(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns activity detail", func(t *testing.T) {
		t.Parallel()

		var seen url.Values

		fetcher := newRouteFetcher()
		fetcher.handleFunc("/activities/42", func(query url.Values) ([]byte, error) {
			seen = query

			return []byte(`{
				"id": 42,
				"name": "Evening Ride",
				"calories": 850.2,
				"segment_efforts": [
					{"id": 900, "segment": {"id": 7001, "name": "Canal Sprint"}}
				]
			}`), nil
		})

		activities := client.NewActivitiesClient(newTestEngine(t, fetcher))

		activity, err := activities.Get(ctx, 42, true)
		require.NoError(t, err)
		assert.Equal(t, int64(42), activity.ID)
		assert.InDelta(t, 850.2, activity.Calories, 0.01)
		require.Len(t, activity.SegmentEfforts, 1)
		require.NotNil(t, activity.SegmentEfforts[0].Segment)
		assert.Equal(t, "Canal Sprint", activity.SegmentEfforts[0].Segment.Name)
		assert.Equal(t, "true", seen.Get("include_all_efforts"))
	})

	t.Run("efforts flag changes the cache key", func(t *testing.T) {
		t.Parallel()

		fetcher := newRouteFetcher()
		fetcher.handle("/activities/42", `{"id": 42}`)

		activities := client.NewActivitiesClient(newTestEngine(t, fetcher))

		_, err := activities.Get(ctx, 42, false)
		require.NoError(t, err)
		_, err = activities.Get(ctx, 42, true)
		require.NoError(t, err)

		assert.Equal(t, 2, fetcher.calls["/activities/42"])
	})

	t.Run("unknown activity", func(t *testing.T) {
		t.Parallel()

		activities := client.NewActivitiesClient(newTestEngine(t, newRouteFetcher()))

		_, err := activities.Get(ctx, 9999, false)
		require.Error(t, err)
		assert.True(t, strava.IsNotFound(err))
	})
}
