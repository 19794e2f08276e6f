// Package ratelimit tracks API quota usage reported through response
// headers and computes when a throttled client may safely retry.
//
// The API enforces two independent quotas: a short window that resets on
// 15-minute UTC wall-clock boundaries and a daily quota that resets at UTC
// midnight. Both are reported on every response, throttled ones included,
// as comma-separated "short,daily" pairs in the usage and limit headers.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/velodata-io/strava/internal/constants"
)

// Header names carrying the paired quota values.
const (
	UsageHeader = "X-RateLimit-Usage"
	LimitHeader = "X-RateLimit-Limit"
)

// Snapshot is the most recently observed quota state.
type Snapshot struct {
	ObservedAt time.Time
	ShortUsage int
	ShortLimit int
	DailyUsage int
	DailyLimit int
}

// Limiter derives throttle decisions from response headers. The zero state
// (no response seen yet) is never throttled.
type Limiter struct {
	mu   sync.RWMutex
	snap *Snapshot
	now  func() time.Time
}

// NewLimiter creates a limiter with no recorded snapshot.
func NewLimiter() *Limiter {
	return &Limiter{now: time.Now}
}

// Record parses the paired usage/limit headers and replaces the snapshot.
// It reports whether the headers were present; when absent the prior
// snapshot is kept untouched so the caller can log a warning.
func (l *Limiter) Record(headers http.Header) bool {
	shortUsage, dailyUsage, ok := parsePair(headers.Get(UsageHeader))
	if !ok {
		return false
	}

	shortLimit, dailyLimit, ok := parsePair(headers.Get(LimitHeader))
	if !ok {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.snap = &Snapshot{
		ObservedAt: l.now(),
		ShortUsage: shortUsage,
		ShortLimit: shortLimit,
		DailyUsage: dailyUsage,
		DailyLimit: dailyLimit,
	}

	return true
}

// Snapshot returns a copy of the last observed quota state, or nil when no
// response has been recorded yet.
func (l *Limiter) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.snap == nil {
		return nil
	}

	snap := *l.snap

	return &snap
}

// Throttled reports whether a request issued now would exhaust a quota.
// With leaveBuffer, a window counts as exhausted at 80% of its limit so
// some headroom remains for other uses of the same application quota.
func (l *Limiter) Throttled(leaveBuffer bool) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.shortThrottled(leaveBuffer) || l.dailyThrottled(leaveBuffer)
}

// NextReset returns the earliest time at which the exhausted quota resets.
// The daily boundary wins when both quotas are exhausted since waiting out
// the short window alone would not help. Returns the zero time when not
// throttled.
func (l *Limiter) NextReset(leaveBuffer bool) time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch {
	case l.dailyThrottled(leaveBuffer):
		return DailyReset(l.snap.ObservedAt)
	case l.shortThrottled(leaveBuffer):
		return ShortWindowReset(l.snap.ObservedAt)
	default:
		return time.Time{}
	}
}

// Wait blocks until the current throttle window has passed, returning
// immediately when not throttled. It honors ctx cancellation and never
// mutates the snapshot, so an interrupted wait leaves the limiter intact.
func (l *Limiter) Wait(ctx context.Context, leaveBuffer bool) error {
	for {
		reset := l.NextReset(leaveBuffer)
		if reset.IsZero() {
			return nil
		}

		delay := reset.Sub(l.now())
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}

// callers hold l.mu
func (l *Limiter) shortThrottled(leaveBuffer bool) bool {
	if l.snap == nil {
		return false
	}

	return exhausted(l.snap.ShortUsage, l.snap.ShortLimit, leaveBuffer) &&
		l.now().Before(ShortWindowReset(l.snap.ObservedAt))
}

// callers hold l.mu
func (l *Limiter) dailyThrottled(leaveBuffer bool) bool {
	if l.snap == nil {
		return false
	}

	return exhausted(l.snap.DailyUsage, l.snap.DailyLimit, leaveBuffer) &&
		l.now().Before(DailyReset(l.snap.ObservedAt))
}

func exhausted(used, limit int, leaveBuffer bool) bool {
	if limit <= 0 {
		return false
	}

	threshold := float64(limit)
	if leaveBuffer {
		threshold *= constants.RateLimitBufferFraction
	}

	return float64(used) >= threshold
}

// ShortWindowReset returns the end of the 15-minute UTC wall-clock bucket
// containing t.
func ShortWindowReset(t time.Time) time.Time {
	t = t.UTC()

	bucketStart := t.Truncate(constants.ShortWindow)

	return bucketStart.Add(constants.ShortWindow)
}

// DailyReset returns the next UTC midnight after t.
func DailyReset(t time.Time) time.Time {
	t = t.UTC()

	year, month, day := t.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// parsePair splits a "short,daily" header value.
func parsePair(value string) (short, daily int, ok bool) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}

	short, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}

	daily, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}

	return short, daily, true
}
