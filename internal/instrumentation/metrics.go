package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrGrant     = "grant"
	attrModel     = "model"
	attrAction    = "action"
	attrBreaker   = "breaker"
	attrState     = "state"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram
	messageFetchFailuresTotal  metric.Int64Counter
	breakerStateChangesTotal   metric.Int64Counter

	// OAuth metrics
	oauthExchangesTotal metric.Int64Counter

	// Assistant metrics
	llmCompletionsTotal   metric.Int64Counter
	llmCompletionDuration metric.Float64Histogram
	assistantActionsTotal metric.Int64Counter

	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.messageFetchFailuresTotal, err = meter.Int64Counter(
		"gmail_message_fetch_failures_total",
		metric.WithDescription("Messages omitted from list or search results because their fetch failed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_message_fetch_failures_total counter: %w", err)
	}

	m.breakerStateChangesTotal, err = meter.Int64Counter(
		"circuit_breaker_state_changes_total",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create circuit_breaker_state_changes_total counter: %w", err)
	}

	m.oauthExchangesTotal, err = meter.Int64Counter(
		"oauth_exchanges_total",
		metric.WithDescription("Total number of OAuth token exchanges by grant and result"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_exchanges_total counter: %w", err)
	}

	m.llmCompletionsTotal, err = meter.Int64Counter(
		"llm_completions_total",
		metric.WithDescription("Total number of LLM chat completions"),
		metric.WithUnit("{completion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_completions_total counter: %w", err)
	}

	m.llmCompletionDuration, err = meter.Float64Histogram(
		"llm_completion_duration_seconds",
		metric.WithDescription("LLM chat completion duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_completion_duration_seconds histogram: %w", err)
	}

	m.assistantActionsTotal, err = meter.Int64Counter(
		"assistant_actions_total",
		metric.WithDescription("Assistant replies by normalized action type"),
		metric.WithUnit("{reply}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assistant_actions_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, route, status code, and duration.
// path should be the matched route pattern, not the raw URL path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (gmail, userinfo, oauth)
//   - operation: Operation type (list, get, send, modify, trash, ...)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMessageFetchFailures counts messages dropped from a fan-out result.
func (m *Metrics) RecordMessageFetchFailures(ctx context.Context, operation string, count int) {
	if m == nil || m.messageFetchFailuresTotal == nil || count <= 0 {
		return
	}

	m.messageFetchFailuresTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String(attrOperation, operation),
	))
}

// RecordBreakerStateChange records a circuit breaker transition into state.
func (m *Metrics) RecordBreakerStateChange(ctx context.Context, breaker, state string) {
	if m == nil || m.breakerStateChangesTotal == nil {
		return
	}

	m.breakerStateChangesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrBreaker, breaker),
		attribute.String(attrState, state),
	))
}

// RecordOAuthExchange records a token exchange against Google.
// grant is GrantAuthorizationCode or GrantRefreshToken; result is success or failure.
func (m *Metrics) RecordOAuthExchange(ctx context.Context, grant, result string) {
	if m == nil || m.oauthExchangesTotal == nil {
		return
	}

	m.oauthExchangesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrGrant, grant),
		attribute.String(attrResult, result),
	))
}

// RecordLLMCompletion records a chat completion call.
// The model label is only attached when detailed labels are enabled.
func (m *Metrics) RecordLLMCompletion(ctx context.Context, model, status string, duration time.Duration) {
	if m == nil || m.llmCompletionsTotal == nil || m.llmCompletionDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && model != "" {
		attrs = append(attrs, attribute.String(attrModel, model))
	}

	m.llmCompletionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmCompletionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAssistantAction counts normalized assistant replies by action type.
// Replies without an action are recorded as "none".
func (m *Metrics) RecordAssistantAction(ctx context.Context, actionType string) {
	if m == nil || m.assistantActionsTotal == nil {
		return
	}
	if actionType == "" {
		actionType = "none"
	}

	m.assistantActionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrAction, actionType),
	))
}
