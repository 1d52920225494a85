package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/mailai/internal/config"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusMissing      = "not configured"
)

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	ready        atomic.Bool
	shuttingDown atomic.Bool
	startTime    time.Time

	googleConfigured bool
	llmConfigured    bool
}

// NewHealthChecker creates a HealthChecker that is not ready until SetReady.
func NewHealthChecker(cfg config.Config) *HealthChecker {
	h := &HealthChecker{
		startTime:        time.Now(),
		googleConfigured: cfg.Google.HasCredentials(),
		llmConfigured:    cfg.LLM.APIKey != "",
	}
	return h
}

// SetReady sets the readiness state. The API server sets it once its
// listener is bound.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetShuttingDown fails readiness for the rest of the process lifetime.
func (h *HealthChecker) SetShuttingDown() {
	h.shuttingDown.Store(true)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load() && !h.shuttingDown.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Uptime string            `json:"uptime,omitempty"`
}

// LivenessHandler reports that the process is up.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	}
}

// ReadinessHandler reports whether the server accepts traffic. Missing
// credentials are listed but do not fail readiness; the affected endpoints
// answer 500 on their own.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		checks := map[string]string{
			"ready":              healthStatusOK,
			"shutdown":           healthStatusOK,
			"google_credentials": healthStatusOK,
			"llm_api_key":        healthStatusOK,
		}
		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
		}
		if h.shuttingDown.Load() {
			checks["shutdown"] = healthStatusShuttingDown
		}
		if !h.googleConfigured {
			checks["google_credentials"] = healthStatusMissing
		}
		if !h.llmConfigured {
			checks["llm_api_key"] = healthStatusMissing
		}

		resp := HealthResponse{
			Status: healthStatusOK,
			Checks: checks,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}
		status := http.StatusOK
		if !h.IsReady() {
			resp.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

// RegisterHealthEndpoints registers /healthz and /readyz on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.LivenessHandler())
	mux.HandleFunc("GET /readyz", h.ReadinessHandler())
}
