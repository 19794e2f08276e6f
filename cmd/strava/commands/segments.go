package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/velodata-io/strava/pkg/strava"
)

// NewSegmentsCommand creates the segments command group
func NewSegmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "segments",
		Aliases: []string{"segment"},
		Short:   "Query segments",
		Long:    "Inspect segment usage across the athlete's activities",
	}

	cmd.AddCommand(newSegmentsMostFrequentedCommand())

	return cmd
}

func newSegmentsMostFrequentedCommand() *cobra.Command {
	var (
		limit  int
		before string
		after  string
	)

	cmd := &cobra.Command{
		Use:   "most-frequented",
		Short: "Rank segments by attempt count",
		Long: `Walk every activity, fetch its segment efforts, and rank the segments
by how often they were attempted. This issues one detail request per
activity, so the first run on a large history takes a while and may wait
out rate limit windows; cached activities make reruns cheap.`,
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

			usages, err := client.Segments().MostFrequented(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to rank segments: %w", err)
			}

			if limit > 0 && len(usages) > limit {
				usages = usages[:limit]
			}

			if done, err := renderStructured(usages); done {
				return err
			}

			if len(usages) == 0 {
				fmt.Println("No segment efforts found")

				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Attempts", "Name", "Link")

			for _, usage := range usages {
				_ = table.Append(
					strconv.Itoa(usage.Count),
					usage.Segment.Name,
					fmt.Sprintf("https://www.strava.com/segments/%d", usage.Segment.ID),
				)
			}

			return table.Render()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of segments to show (0 for all)")
	cmd.Flags().StringVar(&before, "before", "", "only activities before this date")
	cmd.Flags().StringVar(&after, "after", "", "only activities after this date")

	return cmd
}
