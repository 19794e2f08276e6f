package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headersFor(usage, limit string) http.Header {
	headers := http.Header{}
	if usage != "" {
		headers.Set(UsageHeader, usage)
	}

	if limit != "" {
		headers.Set(LimitHeader, limit)
	}

	return headers
}

func TestLimiter_Record(t *testing.T) {
	t.Parallel()

	t.Run("parses the paired headers", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		require.True(t, limiter.Record(headersFor("42, 1234", "100, 1000")))

		snap := limiter.Snapshot()
		require.NotNil(t, snap)
		assert.Equal(t, 42, snap.ShortUsage)
		assert.Equal(t, 1234, snap.DailyUsage)
		assert.Equal(t, 100, snap.ShortLimit)
		assert.Equal(t, 1000, snap.DailyLimit)
	})

	t.Run("keeps the prior snapshot when headers are absent", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		require.True(t, limiter.Record(headersFor("42,1234", "100,1000")))

		assert.False(t, limiter.Record(http.Header{}))
		assert.False(t, limiter.Record(headersFor("43,1235", "")))
		assert.False(t, limiter.Record(headersFor("garbage", "100,1000")))
		assert.False(t, limiter.Record(headersFor("1,2,3", "100,1000")))

		snap := limiter.Snapshot()
		require.NotNil(t, snap)
		assert.Equal(t, 42, snap.ShortUsage)
	})

	t.Run("no snapshot before any response", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		assert.Nil(t, limiter.Snapshot())
		assert.False(t, limiter.Throttled(true))
		assert.True(t, limiter.NextReset(true).IsZero())
	})
}

func TestLimiter_Throttled(t *testing.T) {
	t.Parallel()

	// Fixed time inside a short window: 10:07:00 UTC.
	observed := time.Date(2023, 6, 10, 10, 7, 0, 0, time.UTC)

	tests := []struct {
		name                string
		usage               string
		limit               string
		throttledBuffered   bool
		throttledUnbuffered bool
	}{
		{
			name:                "well under both quotas",
			usage:               "5,100",
			limit:               "100,1000",
			throttledBuffered:   false,
			throttledUnbuffered: false,
		},
		{
			name:                "at the buffered short threshold",
			usage:               "12,100",
			limit:               "15,1000",
			throttledBuffered:   true,
			throttledUnbuffered: false,
		},
		{
			name:                "short quota fully exhausted",
			usage:               "15,100",
			limit:               "15,1000",
			throttledBuffered:   true,
			throttledUnbuffered: true,
		},
		{
			name:                "daily quota at buffered threshold",
			usage:               "1,800",
			limit:               "100,1000",
			throttledBuffered:   true,
			throttledUnbuffered: false,
		},
		{
			name:                "zero limits never throttle",
			usage:               "5,100",
			limit:               "0,0",
			throttledBuffered:   false,
			throttledUnbuffered: false,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limiter := NewLimiter()
			limiter.now = func() time.Time { return observed }
			require.True(t, limiter.Record(headersFor(tt.usage, tt.limit)))

			assert.Equal(t, tt.throttledBuffered, limiter.Throttled(true))
			assert.Equal(t, tt.throttledUnbuffered, limiter.Throttled(false))
		})
	}

	t.Run("throttle clears after the window boundary", func(t *testing.T) {
		t.Parallel()

		now := observed
		limiter := NewLimiter()
		limiter.now = func() time.Time { return now }
		require.True(t, limiter.Record(headersFor("15,100", "15,1000")))
		assert.True(t, limiter.Throttled(false))

		// Step past the 10:15:00 boundary without a new response.
		now = time.Date(2023, 6, 10, 10, 15, 1, 0, time.UTC)
		assert.False(t, limiter.Throttled(false))
	})
}

func TestLimiter_NextReset(t *testing.T) {
	t.Parallel()

	observed := time.Date(2023, 6, 10, 10, 7, 0, 0, time.UTC)
	shortReset := time.Date(2023, 6, 10, 10, 15, 0, 0, time.UTC)
	dailyReset := time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC)

	t.Run("short window exhausted", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		limiter.now = func() time.Time { return observed }
		require.True(t, limiter.Record(headersFor("15,100", "15,1000")))

		assert.Equal(t, shortReset, limiter.NextReset(false))
	})

	t.Run("daily boundary wins when both are exhausted", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		limiter.now = func() time.Time { return observed }
		require.True(t, limiter.Record(headersFor("15,1000", "15,1000")))

		assert.Equal(t, dailyReset, limiter.NextReset(false))
	})
}

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("returns immediately when not throttled", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		require.NoError(t, limiter.Wait(context.Background(), true))
	})

	t.Run("waits out the short window", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		// Pin the clock just before the boundary so the wait is short.
		limiter.now = func() time.Time {
			return time.Now().UTC().Truncate(15 * time.Minute).Add(15*time.Minute - 20*time.Millisecond)
		}
		require.True(t, limiter.Record(headersFor("15,100", "15,1000")))

		start := time.Now()
		require.NoError(t, limiter.Wait(context.Background(), false))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("cancelable", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter()
		require.True(t, limiter.Record(headersFor("15,100", "15,1000")))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := limiter.Wait(ctx, false)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// The snapshot survives an interrupted wait.
		assert.NotNil(t, limiter.Snapshot())
	})
}

func TestWindowBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		at    time.Time
		short time.Time
		daily time.Time
	}{
		{
			name:  "mid window",
			at:    time.Date(2023, 6, 10, 10, 7, 30, 0, time.UTC),
			short: time.Date(2023, 6, 10, 10, 15, 0, 0, time.UTC),
			daily: time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "exactly on a boundary starts the next window",
			at:    time.Date(2023, 6, 10, 10, 15, 0, 0, time.UTC),
			short: time.Date(2023, 6, 10, 10, 30, 0, 0, time.UTC),
			daily: time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "last window of the day",
			at:    time.Date(2023, 6, 10, 23, 59, 59, 0, time.UTC),
			short: time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC),
			daily: time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "non-UTC time is normalized",
			at:    time.Date(2023, 6, 10, 12, 7, 0, 0, time.FixedZone("CEST", 2*3600)),
			short: time.Date(2023, 6, 10, 10, 15, 0, 0, time.UTC),
			daily: time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.short, ShortWindowReset(tt.at))
			assert.Equal(t, tt.daily, DailyReset(tt.at))
		})
	}
}
