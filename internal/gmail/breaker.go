package gmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"

	"github.com/teemow/mailai/internal/instrumentation"
)

const breakerName = "gmail-api"

func newBreaker(metrics *instrumentation.Metrics) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.RecordBreakerStateChange(context.Background(), name, to.String())
		},
		IsSuccessful: isSuccessful,
	})
}

// isSuccessful reports whether err should count as a healthy upstream call.
// Client errors such as an expired token or an unknown message ID say nothing
// about Gmail's availability, so only 5xx, 429 and transport errors trip.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code < http.StatusInternalServerError && apiErr.Code != http.StatusTooManyRequests
	}
	return false
}

// IsUnavailable reports whether err was produced by an open circuit breaker
// rather than by Gmail itself.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
