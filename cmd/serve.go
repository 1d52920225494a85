package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/mailai/internal/assistant"
	"github.com/teemow/mailai/internal/config"
	"github.com/teemow/mailai/internal/gmail"
	"github.com/teemow/mailai/internal/google"
	"github.com/teemow/mailai/internal/instrumentation"
	"github.com/teemow/mailai/internal/logging"
	"github.com/teemow/mailai/internal/server"
)

// serveFlags holds command-line overrides. Only flags the user actually set
// are applied over the loaded configuration.
type serveFlags struct {
	debug            bool
	logFormat        string
	httpAddr         string
	corsOrigins      []string
	model            string
	llmTimeout       time.Duration
	fetchConcurrency int
	circuitBreaker   bool
	metricsEnabled   bool
	metricsAddr      string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP backend",
		Long: `Start the mailai HTTP backend.

Google OAuth:
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URI configure the
  sign-in flow. Without credentials the server still starts; /auth/login then
  answers 500 "Missing Google Credentials".

Assistant:
  OPENROUTER_API_KEY enables /api/assistant. APP_URL is sent as HTTP-Referer.
  The model, base URL, temperature and timeout are configurable.

Metrics:
  Prometheus metrics are served on a separate address (--metrics-addr) so they
  are not exposed with application traffic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags.register(cmd)

	return cmd
}

// register binds the serve flags to cmd.
func (f *serveFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "Log format: text or json")
	fs.StringVar(&f.httpAddr, "http-addr", config.DefaultHTTPAddr, "HTTP listen address")
	fs.StringSliceVar(&f.corsOrigins, "cors-origins", nil, "Allowed CORS origins (default: any)")
	fs.StringVar(&f.model, "model", config.DefaultLLMModel, "Chat-completion model")
	fs.DurationVar(&f.llmTimeout, "llm-timeout", config.DefaultLLMTimeout, "Timeout for one chat completion")
	fs.IntVar(&f.fetchConcurrency, "fetch-concurrency", config.DefaultFetchConcurrency, "Parallel Gmail message fetches per request")
	fs.BoolVar(&f.circuitBreaker, "circuit-breaker", false, "Wrap Gmail calls in a circuit breaker")
	fs.BoolVar(&f.metricsEnabled, "metrics", true, "Serve Prometheus metrics")
	fs.StringVar(&f.metricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Metrics listen address")
}

// apply overlays flags that were set explicitly on cfg.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("debug") && f.debug {
		cfg.Log.Level = "debug"
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if changed("http-addr") {
		cfg.HTTPAddr = f.httpAddr
	}
	if changed("cors-origins") {
		cfg.CORSAllowedOrigins = f.corsOrigins
	}
	if changed("model") {
		cfg.LLM.Model = f.model
	}
	if changed("llm-timeout") {
		cfg.LLM.Timeout = f.llmTimeout
	}
	if changed("fetch-concurrency") {
		cfg.Gmail.FetchConcurrency = f.fetchConcurrency
	}
	if changed("circuit-breaker") {
		cfg.Gmail.CircuitBreaker = f.circuitBreaker
	}
	if changed("metrics") {
		cfg.Metrics.Enabled = f.metricsEnabled
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Format, level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	instrConfig := cfg.Instrumentation
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	exchanger := google.NewExchanger(cfg.Google, google.WithMetrics(metrics))
	if !exchanger.Configured() {
		logger.Warn("Google OAuth credentials are not configured; sign-in will fail")
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("OPENROUTER_API_KEY is not set; the assistant endpoint will fail")
	}

	srv, err := server.New(cfg, server.Deps{
		Gateway: gmail.NewGateway(cfg.Gmail,
			gmail.WithMetrics(metrics),
			gmail.WithAuditLogger(provider.AuditLogger(logger))),
		OAuth: exchanger,
		Assistant: assistant.NewService(
			assistant.NewOpenRouter(cfg.LLM, assistant.WithProviderMetrics(metrics)),
			metrics),
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && provider.PrometheusHandler() != nil {
		metricsServer, err = server.NewMetricsServer(cfg.Metrics.Addr, provider)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server failed", logging.Err(runErr))
	}

	stopCtx, stop := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer stop()

	if err := srv.Shutdown(stopCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("http server shutdown: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(stopCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	return runErr
}
