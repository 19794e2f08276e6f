package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewAthleteCommand creates the athlete command
func NewAthleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "athlete",
		Short: "Show the authenticated athlete",
		Long:  "Fetch and display the profile of the currently authorized athlete",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			athlete, err := client.Athlete().Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get athlete: %w", err)
			}

			if done, err := renderStructured(athlete); done {
				return err
			}

			location := strings.Trim(strings.Join([]string{athlete.City, athlete.State, athlete.Country}, ", "), ", ")

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Property", "Value")
			_ = table.Append("ID", fmt.Sprintf("%d", athlete.ID))
			_ = table.Append("Name", strings.TrimSpace(athlete.FirstName+" "+athlete.LastName))
			_ = table.Append("Username", athlete.Username)
			_ = table.Append("Location", location)
			_ = table.Append("Followers", fmt.Sprintf("%d", athlete.FollowerCount))
			_ = table.Append("Created", athlete.CreatedAt.Format("2006-01-02"))

			return table.Render()
		},
	}
}
