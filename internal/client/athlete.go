package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/velodata-io/strava/pkg/strava"
)

// AthleteClient implements strava.AthleteClient
type AthleteClient struct {
	engine *strava.QueryEngine
}

// NewAthleteClient creates a new athlete client
func NewAthleteClient(engine *strava.QueryEngine) *AthleteClient {
	return &AthleteClient{
		engine: engine,
	}
}

// Get implements strava.AthleteClient.Get
func (c *AthleteClient) Get(ctx context.Context) (*strava.Athlete, error) {
	data, err := c.engine.Query(ctx, "/athlete", nil)
	if err != nil {
		return nil, fmt.Errorf("getting athlete: %w", err)
	}

	var athlete strava.Athlete
	if err := json.Unmarshal(data, &athlete); err != nil {
		return nil, fmt.Errorf("parsing athlete response: %w", err)
	}

	return &athlete, nil
}
