package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/velodata-io/strava/pkg/strava"
)

// NewQueryCommand creates the query command
func NewQueryCommand() *cobra.Command {
	var (
		params    []string
		noBuffer  bool
		noBackoff bool
	)

	cmd := &cobra.Command{
		Use:   "query <path>",
		Short: "Run a raw API query",
		Long: `Fetch any GET path known to the API schema and print the JSON result.
Paginated paths are walked to completion and returned as a single array.

Examples:
  strava query /athlete
  strava query /athlete/activities
  strava query /activities/1234567890 -p include_all_efforts=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paramMap := map[string]string{}

			for _, param := range params {
				key, value, found := strings.Cut(param, "=")
				if !found {
					return fmt.Errorf("invalid parameter %q, expected key=value", param)
				}

				paramMap[key] = value
			}

			opts := queryOptions()

			if noBuffer {
				opts = append(opts, strava.WithoutRateLimitBuffer())
			}

			if noBackoff {
				opts = append(opts, strava.WithoutBackoff())
			}

			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			data, err := client.Query(ctx, args[0], paramMap, opts...)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			var indented bytes.Buffer
			if err := json.Indent(&indented, data, "", "  "); err != nil {
				// Not valid JSON, print as-is
				fmt.Println(string(data))

				return nil
			}

			fmt.Fprintln(os.Stdout, indented.String())

			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&noBuffer, "no-buffer", false, "use the full rate limit quota")
	cmd.Flags().BoolVar(&noBackoff, "no-backoff", false, "fail instead of waiting when the quota is exhausted")

	return cmd
}
