package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Mode selects the termination rule for a load-test run.
type Mode string

const (
	// ModeDuration admits work until a wall-clock deadline passes.
	ModeDuration Mode = "duration"
	// ModeCount admits exactly a target number of tool calls.
	ModeCount Mode = "count"
)

// Config holds all settings for a surge run.
type Config struct {
	ServerURL   string        `mapstructure:"server_url"`
	Tool        string        `mapstructure:"tool"`
	APIKey      string        `mapstructure:"api_key"`
	Mode        Mode          `mapstructure:"mode"`
	Concurrency int           `mapstructure:"concurrency"`
	Rate        int           `mapstructure:"rate"`
	Duration    time.Duration `mapstructure:"duration"`
	TotalCalls  int           `mapstructure:"total_calls"`
	Retries     int           `mapstructure:"retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
	QueriesFile string        `mapstructure:"queries_file"`
	QueriesKey  string        `mapstructure:"queries_key"`
	Fallback    int           `mapstructure:"fallback_queries"`
	JSONOutput  bool          `mapstructure:"json_output"`
	LogErrors   bool          `mapstructure:"log_errors"`
	ConfigFile  string        `mapstructure:"-"`
	OAuth       OAuthConfig   `mapstructure:"oauth"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// OAuthConfig configures the client-credentials token flow used when no
// static API key is available.
type OAuthConfig struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

func (o OAuthConfig) Enabled() bool {
	return strings.TrimSpace(o.TokenURL) != ""
}

// TracingConfig configures the optional OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// Validate checks the configuration and fails fast before any work is
// dispatched.
func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.ServerURL)
	if target == "" {
		issues = append(issues, "server URL is required (flag --server, config server_url, or CASHMERE_MCP_SERVER_URL)")
	} else if u, err := url.Parse(target); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, fmt.Sprintf("server URL %q is not a valid absolute URL", target))
	}

	switch c.Mode {
	case ModeDuration:
		if c.Duration <= 0 {
			issues = append(issues, "duration mode requires duration > 0")
		}
	case ModeCount:
		if c.TotalCalls <= 0 {
			issues = append(issues, "count mode requires calls > 0")
		}
	default:
		issues = append(issues, fmt.Sprintf("mode must be %q or %q, got %q", ModeDuration, ModeCount, c.Mode))
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if strings.TrimSpace(c.Tool) == "" {
		issues = append(issues, "tool name cannot be empty")
	}
	if c.Fallback < 1 {
		issues = append(issues, "fallback_queries must be >= 1")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}
	if c.OAuth.Enabled() && strings.TrimSpace(c.OAuth.ClientID) == "" {
		issues = append(issues, "oauth token_url requires client_id")
	}

	if c.Concurrency > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: high concurrency configured (%d). Ensure you have authorization to load test the target server.\n", c.Concurrency)
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(issues, "\n  - "))
	}
	return nil
}
