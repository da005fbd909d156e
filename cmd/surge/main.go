package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cashmeremcp/surge/internal/auth"
	"github.com/cashmeremcp/surge/internal/config"
	"github.com/cashmeremcp/surge/internal/mcp"
	"github.com/cashmeremcp/surge/internal/metrics"
	"github.com/cashmeremcp/surge/internal/output"
	"github.com/cashmeremcp/surge/internal/queries"
	"github.com/cashmeremcp/surge/internal/runner"
	"github.com/cashmeremcp/surge/internal/tracing"
)

const progressInterval = time.Second

// toolExecutor performs exactly one tool call per Execute. Retrying is the
// retry policy's job, not the executor's.
type toolExecutor struct {
	client *mcp.Client
	tracer trace.Tracer
}

func (e *toolExecutor) Execute(ctx context.Context, query string) (time.Duration, error) {
	ctx, span := tracing.StartCallSpan(ctx, e.tracer, e.client.Tool(), query)
	start := time.Now()
	_, err := e.client.Search(ctx, query)
	latency := time.Since(start)
	tracing.EndSpan(span, err)
	return latency, err
}

// loggingExecutor logs each failed call to stderr.
type loggingExecutor struct {
	inner runner.Executor
	mu    sync.Mutex
}

func (l *loggingExecutor) Execute(ctx context.Context, query string) (time.Duration, error) {
	latency, err := l.inner.Execute(ctx, query)
	if err != nil {
		l.mu.Lock()
		fmt.Fprintf(os.Stderr, "[surge] call failed (query %q): %v\n", query, err)
		l.mu.Unlock()
	}
	return latency, err
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := traceProvider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "[surge] trace shutdown: %v\n", err)
		}
	}()

	pool := queries.Load(cfg.QueriesFile, cfg.QueriesKey, cfg.Fallback, os.Stderr)

	client := mcp.NewClient(mcp.Options{
		ServerURL: cfg.ServerURL,
		Tool:      cfg.Tool,
		Timeout:   cfg.Timeout,
		Auth:      buildAuthProvider(cfg),
	})
	defer client.Close()

	collector := metrics.NewCollector()

	var executor runner.Executor = &toolExecutor{client: client, tracer: traceProvider.Tracer()}
	if cfg.LogErrors {
		executor = &loggingExecutor{inner: executor}
	}

	r := runner.New(runner.Options{
		Mode:          toRunnerMode(cfg.Mode),
		Concurrency:   cfg.Concurrency,
		MaxRetries:    cfg.Retries,
		Duration:      cfg.Duration,
		TotalCalls:    cfg.TotalCalls,
		RatePerSecond: cfg.Rate,
		Executor:      executor,
		Queries:       pool,
		Recorder:      collector,
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	// Mark the actual start time in the collector so elapsed-time based
	// rates ignore setup cost.
	collector.Start()
	result, runErr := r.Run(ctx)

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}

	stats := collector.Stats(result.Duration)
	stats.MaxConcurrent = result.MaxConcurrent
	stats.Interrupted = result.Interrupted

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if result.Failures > 0 {
		return fmt.Errorf("%d calls failed", result.Failures)
	}
	return nil
}

func buildAuthProvider(cfg *config.Config) auth.Provider {
	if cfg.APIKey != "" {
		return auth.NewStaticTokenProvider(cfg.APIKey)
	}
	if cfg.OAuth.Enabled() {
		return auth.NewOAuth2ClientCredentialsProvider(
			cfg.OAuth.TokenURL,
			cfg.OAuth.ClientID,
			cfg.OAuth.ClientSecret,
			cfg.OAuth.Scopes,
		)
	}
	return nil
}

func toRunnerMode(mode config.Mode) runner.Mode {
	if mode == config.ModeDuration {
		return runner.ModeDuration
	}
	return runner.ModeCount
}
