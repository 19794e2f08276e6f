package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/velodata-io/strava/internal/constants"
	"github.com/velodata-io/strava/pkg/strava"
	"github.com/velodata-io/strava/pkg/stravaclient"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// createClient builds a client from the global flags and config file.
func createClient(ctx context.Context) (strava.Client, error) {
	config := &strava.Config{
		ClientSecretsFile: viper.GetString("secrets"),
		TokenFile:         viper.GetString("token-file"),
		CacheDir:          viper.GetString("cache-dir"),
		NoBrowser:         viper.GetBool("no-browser"),
	}

	if viper.GetBool("verbose") {
		config.Logger = stderrLogger{}
		config.Debug = true
	}

	client, err := stravaclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// queryOptions translates the global flags into per-query options.
func queryOptions() []strava.QueryOption {
	var opts []strava.QueryOption

	if viper.GetBool("force-refresh") {
		opts = append(opts, strava.WithForceRefresh())
	}

	return opts
}

// renderStructured writes v as indented JSON or YAML. It returns false
// when the configured output format is the table default, leaving the
// rendering to the caller.
func renderStructured(v interface{}) (bool, error) {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return true, encoder.Encode(v)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return true, encoder.Encode(v)
	case "", "table":
		return false, nil
	default:
		return true, fmt.Errorf("%w: %q", constants.ErrOutputFormat, viper.GetString("output"))
	}
}

// parseTimeFlag accepts a date (2006-01-02), an RFC3339 timestamp, or a
// unix epoch string.
func parseTimeFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	var epoch int64
	if _, err := fmt.Sscanf(value, "%d", &epoch); err == nil && epoch > 0 {
		return time.Unix(epoch, 0), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", constants.ErrTimeFormat, value)
}

// stderrLogger writes structured log lines to stderr for --verbose runs.
type stderrLogger struct{}

func (stderrLogger) Debug(msg string, fields map[string]interface{}) { logLine("DEBUG", msg, fields) }
func (stderrLogger) Info(msg string, fields map[string]interface{})  { logLine("INFO", msg, fields) }
func (stderrLogger) Warn(msg string, fields map[string]interface{})  { logLine("WARN", msg, fields) }
func (stderrLogger) Error(msg string, fields map[string]interface{}) { logLine("ERROR", msg, fields) }

func logLine(level, msg string, fields map[string]interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s %s", time.Now().Format(time.RFC3339), level, msg)

	for key, value := range fields {
		fmt.Fprintf(os.Stderr, " %s=%v", key, value)
	}

	fmt.Fprintln(os.Stderr)
}
