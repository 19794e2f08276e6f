package strava

import "time"

// Athlete represents the authenticated athlete's profile.
type Athlete struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"firstname"`
	LastName      string    `json:"lastname"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Country       string    `json:"country"`
	Sex           string    `json:"sex"`
	Premium       bool      `json:"premium"`
	Summit        bool      `json:"summit"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Weight        float64   `json:"weight"`
	ProfileMedium string    `json:"profile_medium"`
	Profile       string    `json:"profile"`
	FollowerCount int       `json:"follower_count"`
	FriendCount   int       `json:"friend_count"`
	FTP           int       `json:"ftp"`
}

// PolylineMap holds the encoded route polylines of an activity.
type PolylineMap struct {
	ID              string `json:"id"`
	Polyline        string `json:"polyline"`
	SummaryPolyline string `json:"summary_polyline"`
}

// SummaryActivity is the activity representation returned by list endpoints.
type SummaryActivity struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	Distance           float64     `json:"distance"`
	MovingTime         int         `json:"moving_time"`
	ElapsedTime        int         `json:"elapsed_time"`
	TotalElevationGain float64     `json:"total_elevation_gain"`
	Type               string      `json:"type"`
	SportType          string      `json:"sport_type"`
	StartDate          time.Time   `json:"start_date"`
	StartDateLocal     time.Time   `json:"start_date_local"`
	Timezone           string      `json:"timezone"`
	AchievementCount   int         `json:"achievement_count"`
	KudosCount         int         `json:"kudos_count"`
	CommentCount       int         `json:"comment_count"`
	Private            bool        `json:"private"`
	Trainer            bool        `json:"trainer"`
	Commute            bool        `json:"commute"`
	Manual             bool        `json:"manual"`
	AverageSpeed       float64     `json:"average_speed"`
	MaxSpeed           float64     `json:"max_speed"`
	AverageWatts       float64     `json:"average_watts"`
	Kilojoules         float64     `json:"kilojoules"`
	DeviceWatts        bool        `json:"device_watts"`
	HasHeartrate       bool        `json:"has_heartrate"`
	AverageHeartrate   float64     `json:"average_heartrate"`
	MaxHeartrate       float64     `json:"max_heartrate"`
	Map                PolylineMap `json:"map"`
}

// DetailedActivity extends SummaryActivity with per-activity detail such
// as segment efforts.
type DetailedActivity struct {
	SummaryActivity

	Description    string          `json:"description"`
	Calories       float64         `json:"calories"`
	DeviceName     string          `json:"device_name"`
	Gear           *GearSummary    `json:"gear"`
	SegmentEfforts []SegmentEffort `json:"segment_efforts"`
	SplitsMetric   []Split         `json:"splits_metric"`
	EmbedToken     string          `json:"embed_token"`
}

// GearSummary identifies the bike or shoes used on an activity.
type GearSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Primary  bool    `json:"primary"`
	Distance float64 `json:"distance"`
}

// Split holds per-kilometer split data of an activity.
type Split struct {
	Distance            float64 `json:"distance"`
	ElapsedTime         int     `json:"elapsed_time"`
	ElevationDifference float64 `json:"elevation_difference"`
	MovingTime          int     `json:"moving_time"`
	Split               int     `json:"split"`
	AverageSpeed        float64 `json:"average_speed"`
	PaceZone            int     `json:"pace_zone"`
}

// Segment is a summary representation of a segment.
type Segment struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	ActivityType  string  `json:"activity_type"`
	Distance      float64 `json:"distance"`
	AverageGrade  float64 `json:"average_grade"`
	MaximumGrade  float64 `json:"maximum_grade"`
	ElevationHigh float64 `json:"elevation_high"`
	ElevationLow  float64 `json:"elevation_low"`
	ClimbCategory int     `json:"climb_category"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Country       string  `json:"country"`
	Private       bool    `json:"private"`
	Starred       bool    `json:"starred"`
}

// SegmentEffort is an athlete's attempt at a segment within an activity.
type SegmentEffort struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ElapsedTime    int       `json:"elapsed_time"`
	MovingTime     int       `json:"moving_time"`
	StartDate      time.Time `json:"start_date"`
	StartDateLocal time.Time `json:"start_date_local"`
	Distance       float64   `json:"distance"`
	StartIndex     int       `json:"start_index"`
	EndIndex       int       `json:"end_index"`
	AverageWatts   float64   `json:"average_watts"`
	DeviceWatts    bool      `json:"device_watts"`
	PRRank         int       `json:"pr_rank"`
	KOMRank        int       `json:"kom_rank"`
	Segment        *Segment  `json:"segment"`
}

// SegmentUsage counts how often a segment appears across an athlete's
// activities.
type SegmentUsage struct {
	Segment Segment `json:"segment"`
	Count   int     `json:"count"`
}
