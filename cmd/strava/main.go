package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/velodata-io/strava/cmd/strava/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "strava",
	Short: "Strava API v3 CLI",
	Long: `A command-line interface for querying the Strava API v3.

Results are cached on disk, token refreshes are persisted between runs,
and API rate limits are waited out automatically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.strava/config.yml)")
	rootCmd.PersistentFlags().String("secrets", "client_secrets.json", "client secrets file")
	rootCmd.PersistentFlags().String("token-file", "strava_token.json", "token file, rewritten after every refresh")
	rootCmd.PersistentFlags().String("cache-dir", "cache", "query result cache directory")
	rootCmd.PersistentFlags().String("output", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().Bool("force-refresh", false, "bypass cached results")
	rootCmd.PersistentFlags().Bool("no-browser", false, "never open a browser for re-authorization")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("secrets", rootCmd.PersistentFlags().Lookup("secrets"))
	viper.BindPFlag("token-file", rootCmd.PersistentFlags().Lookup("token-file"))
	viper.BindPFlag("cache-dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("force-refresh", rootCmd.PersistentFlags().Lookup("force-refresh"))
	viper.BindPFlag("no-browser", rootCmd.PersistentFlags().Lookup("no-browser"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewAuthorizeCommand())
	rootCmd.AddCommand(commands.NewAthleteCommand())
	rootCmd.AddCommand(commands.NewActivitiesCommand())
	rootCmd.AddCommand(commands.NewSegmentsCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.strava/config.yml
		viper.AddConfigPath(filepath.Join(home, ".strava"))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("STRAVA")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
