package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/mailai/internal/instrumentation"
)

// DefaultShutdownTimeout bounds graceful shutdown of both listeners and the
// telemetry flush.
const DefaultShutdownTimeout = 30 * time.Second

const (
	metricsReadHeaderTimeout = 10 * time.Second
	metricsWriteTimeout      = 10 * time.Second
	metricsIdleTimeout       = 60 * time.Second
)

// MetricsServer exposes the Prometheus exporter on its own listener so
// scrapes never pass through the API middleware or CORS policy.
type MetricsServer struct {
	httpServer *http.Server
}

// NewMetricsServer requires an enabled provider using the prometheus exporter.
func NewMetricsServer(addr string, provider *instrumentation.Provider) (*MetricsServer, error) {
	switch {
	case addr == "":
		return nil, errors.New("metrics address must not be empty")
	case provider == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !provider.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	}
	scrape := provider.PrometheusHandler()
	if scrape == nil {
		return nil, errors.New("prometheus exporter is not configured")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", scrape)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{httpServer: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
		WriteTimeout:      metricsWriteTimeout,
		IdleTimeout:       metricsIdleTimeout,
	}}, nil
}

// Handler returns the scrape mux.
func (s *MetricsServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving scrapes until Shutdown.
func (s *MetricsServer) Start() error {
	slog.Info("starting metrics server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the listener. It is safe to call before Start.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	slog.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *MetricsServer) Addr() string {
	return s.httpServer.Addr
}
