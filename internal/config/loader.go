package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files, environment variables and
// command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Precedence: flags > config file > environment > defaults.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	applyEnvFallbacks(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Tool:        "search_publications",
		Mode:        ModeCount,
		Concurrency: 3,
		TotalCalls:  2000,
		Duration:    10 * time.Second,
		Retries:     3,
		Timeout:     30 * time.Second,
		QueriesFile: "sample_search_queries.json",
		QueriesKey:  "search_queries",
		Fallback:    100,
		Tracing:     TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

// applyEnvFallbacks fills target and credentials from the environment when
// neither flags nor the config file set them. The variable names match the
// ones the Cashmere client tooling has always used.
func applyEnvFallbacks(cfg *Config) {
	if cfg.ServerURL == "" {
		cfg.ServerURL = os.Getenv("CASHMERE_MCP_SERVER_URL")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("CASHMERE_API_KEY")
	}
}
