package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/teemow/mailai/internal/instrumentation"
	"github.com/teemow/mailai/internal/logging"
)

// HeaderRequestID carries the request correlation ID in both directions.
const HeaderRequestID = "X-Request-ID"

type accessTokenKey struct{}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// withRequestID assigns a request ID (reusing a client-supplied one) and
// attaches a request-scoped logger to the context.
func withRequestID(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := logging.WithRequestIDContext(r.Context(), id)
		ctx = logging.NewContext(ctx, logging.WithRequestID(logger, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withObservability wraps next in a server span, records HTTP metrics and
// writes one access log line per request. The route label comes from the
// matched ServeMux pattern, so path values never become label values.
func withObservability(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := instrumentation.StartServerSpan(r.Context(), r.Method, logging.RequestIDFromContext(r.Context()))
		rec := &statusRecorder{ResponseWriter: w}
		r = r.WithContext(ctx)

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		route := instrumentation.RouteLabel(r.Pattern)
		span.SetName("http " + route)
		instrumentation.SetHTTPStatus(span, rec.status)
		span.End()

		elapsed := time.Since(start)
		metrics.RecordHTTPRequest(ctx, r.Method, route, rec.status, elapsed)
		logging.FromContext(ctx).Info("http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Duration("duration", elapsed))
	})
}

// withCORS applies the configured origin policy. An empty list allows any origin.
func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{HeaderRequestID, HeaderNextPageToken},
		AllowCredentials: true,
	}).Handler(next)
}

// requireBearer rejects requests without an "Authorization: Bearer <token>"
// header. The token is handed to the handler through the request context.
func requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid authorization header"})
			return
		}
		logging.FromContext(r.Context()).Debug("bearer token accepted",
			"token", logging.SanitizeToken(token))
		ctx := contextWithToken(r.Context(), token)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func contextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
