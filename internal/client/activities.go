package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/velodata-io/strava/pkg/strava"
)

// ActivitiesClient implements strava.ActivitiesClient
type ActivitiesClient struct {
	engine *strava.QueryEngine
}

// NewActivitiesClient creates a new activities client
func NewActivitiesClient(engine *strava.QueryEngine) *ActivitiesClient {
	return &ActivitiesClient{
		engine: engine,
	}
}

// List implements strava.ActivitiesClient.List. The result covers every
// matching activity; pagination happens inside the query engine.
func (c *ActivitiesClient) List(ctx context.Context, opts *strava.ActivityListOptions) ([]strava.SummaryActivity, error) {
	params := map[string]string{}

	if opts != nil {
		if !opts.Before.IsZero() {
			params["before"] = strconv.FormatInt(opts.Before.Unix(), 10)
		}

		if !opts.After.IsZero() {
			params["after"] = strconv.FormatInt(opts.After.Unix(), 10)
		}
	}

	data, err := c.engine.Query(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	var activities []strava.SummaryActivity
	if err := json.Unmarshal(data, &activities); err != nil {
		return nil, fmt.Errorf("parsing activities response: %w", err)
	}

	return activities, nil
}

// Get implements strava.ActivitiesClient.Get
func (c *ActivitiesClient) Get(ctx context.Context, activityID int64, includeAllEfforts bool) (*strava.DetailedActivity, error) {
	path := fmt.Sprintf("/activities/%d", activityID)

	params := map[string]string{}
	if includeAllEfforts {
		params["include_all_efforts"] = "true"
	}

	data, err := c.engine.Query(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("getting activity %d: %w", activityID, err)
	}

	var activity strava.DetailedActivity
	if err := json.Unmarshal(data, &activity); err != nil {
		return nil, fmt.Errorf("parsing activity response: %w", err)
	}

	return &activity, nil
}
