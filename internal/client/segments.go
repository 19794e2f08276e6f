package client

import (
	"context"
	"fmt"
	"sort"

	"github.com/velodata-io/strava/pkg/strava"
)

// SegmentsClient implements strava.SegmentsClient
type SegmentsClient struct {
	activities strava.ActivitiesClient
	logger     strava.Logger
}

// NewSegmentsClient creates a new segments client
func NewSegmentsClient(activities strava.ActivitiesClient, logger strava.Logger) *SegmentsClient {
	if logger == nil {
		logger = strava.NoopLogger{}
	}

	return &SegmentsClient{
		activities: activities,
		logger:     logger,
	}
}

// MostFrequented implements strava.SegmentsClient.MostFrequented. It walks
// every activity in range, fetches its segment efforts, and counts how
// often each segment appears, most frequent first. The per-activity detail
// fetches are cached, so a rerun after a rate limit wait resumes cheaply.
func (c *SegmentsClient) MostFrequented(ctx context.Context, opts *strava.ActivityListOptions) ([]strava.SegmentUsage, error) {
	activities, err := c.activities.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activities for segment counts: %w", err)
	}

	counts := make(map[int64]*strava.SegmentUsage)

	for i, activity := range activities {
		detail, err := c.activities.Get(ctx, activity.ID, true)
		if err != nil {
			return nil, fmt.Errorf("getting activity %d detail: %w", activity.ID, err)
		}

		for _, effort := range detail.SegmentEfforts {
			if effort.Segment == nil {
				continue
			}

			usage, ok := counts[effort.Segment.ID]
			if !ok {
				usage = &strava.SegmentUsage{Segment: *effort.Segment}
				counts[effort.Segment.ID] = usage
			}

			usage.Count++
		}

		if (i+1)%50 == 0 {
			c.logger.Info("counting segment efforts", map[string]interface{}{
				"processed": i + 1,
				"total":     len(activities),
			})
		}
	}

	usages := make([]strava.SegmentUsage, 0, len(counts))
	for _, usage := range counts {
		usages = append(usages, *usage)
	}

	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Count != usages[j].Count {
			return usages[i].Count > usages[j].Count
		}

		return usages[i].Segment.ID < usages[j].Segment.ID
	})

	return usages, nil
}
