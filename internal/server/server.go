package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/mailai/internal/assistant"
	"github.com/teemow/mailai/internal/config"
	"github.com/teemow/mailai/internal/gmail"
	"github.com/teemow/mailai/internal/google"
	"github.com/teemow/mailai/internal/instrumentation"
)

// HTTP server timeouts. There is no write timeout: assistant requests wait
// on the LLM, which has its own deadline.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

// Deps are the collaborators the HTTP layer forwards to.
type Deps struct {
	Gateway   *gmail.Gateway
	OAuth     *google.Exchanger
	Assistant *assistant.Service
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// Server is the mailai HTTP API.
type Server struct {
	cfg       config.Config
	gateway   *gmail.Gateway
	oauth     *google.Exchanger
	assistant *assistant.Service
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
	health    *HealthChecker

	handler    http.Handler
	httpServer *http.Server
}

// New wires the routes and middleware. Deps must carry a gateway, an
// exchanger and an assistant service.
func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Gateway == nil || deps.OAuth == nil || deps.Assistant == nil {
		return nil, errors.New("gateway, oauth exchanger and assistant service are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		gateway:   deps.Gateway,
		oauth:     deps.OAuth,
		assistant: deps.Assistant,
		metrics:   deps.Metrics,
		logger:    logger,
	}
	s.health = NewHealthChecker(cfg)
	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("GET /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /auth/profile", requireBearer(s.handleProfile))

	mux.HandleFunc("POST /api/assistant", s.handleAssistant)

	mux.HandleFunc("POST /api/mail/list", requireBearer(s.handleList))
	mux.HandleFunc("GET /api/mail/thread/{id}", requireBearer(s.handleThread))
	mux.HandleFunc("POST /api/mail/search", requireBearer(s.handleSearch))
	mux.HandleFunc("POST /api/mail/send", requireBearer(s.handleSend))
	mux.HandleFunc("POST /api/mail/reply", requireBearer(s.handleReply))
	mux.HandleFunc("POST /api/mail/mark-read", requireBearer(s.handleMarkRead))
	mux.HandleFunc("POST /api/mail/drafts/create", requireBearer(s.handleCreateDraft))
	mux.HandleFunc("POST /api/mail/trash", requireBearer(s.handleTrash))

	s.health.RegisterHealthEndpoints(mux)

	var h http.Handler = mux
	h = withCORS(s.cfg.CORSAllowedOrigins, h)
	h = withObservability(s.metrics, h)
	h = withRequestID(s.logger, h)
	return h
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until Shutdown.
// Readiness turns green once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
	s.health.SetReady(true)
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
