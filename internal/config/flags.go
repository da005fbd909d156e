package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "surge",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("server", "", "MCP server URL to load test (falls back to CASHMERE_MCP_SERVER_URL)")
	flags.String("tool", "search_publications", "MCP tool to invoke")
	flags.String("api-key", "", "Bearer token for the server (falls back to CASHMERE_API_KEY)")

	// Load control flags
	flags.StringP("mode", "m", string(ModeCount), "Run mode: 'count' or 'duration'")
	flags.IntP("concurrency", "c", 3, "Maximum number of concurrent tool calls")
	flags.IntP("calls", "n", 2000, "Total tool calls to make in count mode")
	flags.DurationP("duration", "d", 10*time.Second, "How long to run in duration mode (e.g. 30s, 1m)")
	flags.IntP("rate", "r", 0, "Calls per second pacing (0 means unlimited)")
	flags.Int("retries", 3, "Retries per call after the initial attempt")
	flags.Duration("timeout", 30*time.Second, "Per-call timeout")

	// Query pool flags
	flags.String("queries", "sample_search_queries.json", "Path to the JSON file holding sample queries")
	flags.String("queries-key", "search_queries", "Top-level key holding the query array")
	flags.Int("fallback-queries", 100, "Size of the synthetic query pool used when loading fails")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("log-errors", false, "Log each failed call to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("otlp-endpoint", "", "OTLP endpoint for trace export (empty disables tracing)")
	flags.String("otlp-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("server") {
		val, err := fs.GetString("server")
		if err != nil {
			return err
		}
		cfg.ServerURL = strings.TrimSpace(val)
	}
	if fs.Changed("tool") {
		val, err := fs.GetString("tool")
		if err != nil {
			return err
		}
		cfg.Tool = strings.TrimSpace(val)
	}
	if fs.Changed("api-key") {
		val, err := fs.GetString("api-key")
		if err != nil {
			return err
		}
		cfg.APIKey = strings.TrimSpace(val)
	}
	if fs.Changed("mode") {
		val, err := fs.GetString("mode")
		if err != nil {
			return err
		}
		cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("calls") {
		val, err := fs.GetInt("calls")
		if err != nil {
			return err
		}
		cfg.TotalCalls = val
		if !fs.Changed("mode") && !fs.Changed("duration") {
			cfg.Mode = ModeCount
		}
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
		if !fs.Changed("mode") && !fs.Changed("calls") {
			cfg.Mode = ModeDuration
		}
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("retries") {
		val, err := fs.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("queries") {
		val, err := fs.GetString("queries")
		if err != nil {
			return err
		}
		cfg.QueriesFile = strings.TrimSpace(val)
	}
	if fs.Changed("queries-key") {
		val, err := fs.GetString("queries-key")
		if err != nil {
			return err
		}
		cfg.QueriesKey = strings.TrimSpace(val)
	}
	if fs.Changed("fallback-queries") {
		val, err := fs.GetInt("fallback-queries")
		if err != nil {
			return err
		}
		cfg.Fallback = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("otlp-endpoint") {
		val, err := fs.GetString("otlp-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otlp-protocol") {
		val, err := fs.GetString("otlp-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
