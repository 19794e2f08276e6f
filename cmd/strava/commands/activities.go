package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/velodata-io/strava/internal/constants"
	"github.com/velodata-io/strava/pkg/strava"
)

const metersToMiles = 0.000621371

// NewActivitiesCommand creates the activities command group
func NewActivitiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activities",
		Aliases: []string{"activity"},
		Short:   "Query activities",
		Long:    "List and inspect the athlete's activities",
	}

	cmd.AddCommand(newActivitiesListCommand())
	cmd.AddCommand(newActivitiesGetCommand())

	return cmd
}

func newActivitiesListCommand() *cobra.Command {
	var (
		before string
		after  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities",
		Long:  "List every activity of the athlete, walking all result pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			opts := &strava.ActivityListOptions{}

			opts.Before, err = parseTimeFlag(before)
			if err != nil {
				return err
			}

			opts.After, err = parseTimeFlag(after)
			if err != nil {
				return err
			}

			activities, err := client.Activities().List(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to list activities: %w", err)
			}

			if done, err := renderStructured(activities); done {
				return err
			}

			if len(activities) == 0 {
				fmt.Println("No activities found")

				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("ID", "Date", "Name", "Sport", "Distance (mi)", "Kudos")

			for _, activity := range activities {
				_ = table.Append(
					strconv.FormatInt(activity.ID, 10),
					activity.StartDateLocal.Format("2006-01-02"),
					activity.Name,
					activity.SportType,
					fmt.Sprintf("%.2f", activity.Distance*metersToMiles),
					strconv.Itoa(activity.KudosCount),
				)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("rendering table: %w", err)
			}

			fmt.Printf("\nFound %d activities\n", len(activities))

			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "only activities before this date")
	cmd.Flags().StringVar(&after, "after", "", "only activities after this date")

	return cmd
}

func newActivitiesGetCommand() *cobra.Command {
	var includeAllEfforts bool

	cmd := &cobra.Command{
		Use:   "get <activity-id>",
		Short: "Show one activity",
		Long:  "Fetch the detailed representation of a single activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			activityID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", constants.ErrActivityIDNumber, args[0])
			}

			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			activity, err := client.Activities().Get(ctx, activityID, includeAllEfforts)
			if err != nil {
				return fmt.Errorf("failed to get activity: %w", err)
			}

			if done, err := renderStructured(activity); done {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Property", "Value")
			_ = table.Append("ID", strconv.FormatInt(activity.ID, 10))
			_ = table.Append("Name", activity.Name)
			_ = table.Append("Sport", activity.SportType)
			_ = table.Append("Date", activity.StartDateLocal.Format("2006-01-02 15:04"))
			_ = table.Append("Distance (mi)", fmt.Sprintf("%.2f", activity.Distance*metersToMiles))
			_ = table.Append("Moving time", (time.Duration(activity.MovingTime) * time.Second).String())
			_ = table.Append("Elevation gain (m)", fmt.Sprintf("%.0f", activity.TotalElevationGain))
			_ = table.Append("Kudos", strconv.Itoa(activity.KudosCount))
			_ = table.Append("Segment efforts", strconv.Itoa(len(activity.SegmentEfforts)))

			return table.Render()
		},
	}

	cmd.Flags().BoolVar(&includeAllEfforts, "include-all-efforts", false, "include hidden segment efforts")

	return cmd
}
