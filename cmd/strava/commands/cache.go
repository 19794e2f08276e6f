package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/velodata-io/strava/pkg/strava"
)

// NewCacheCommand creates the cache command group
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the query result cache",
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached query results",
		Long:  "Delete every cached result, including the cached API schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cacheDir := viper.GetString("cache-dir")
			cache := strava.NewFileCache(cacheDir, strava.DefaultCacheExpiration)

			if err := cache.Clear(context.Background()); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}

			fmt.Printf("Cleared cache at %s\n", cacheDir)

			return nil
		},
	}
}
