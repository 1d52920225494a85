package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics wires Metrics to a manual reader so recorded values can be inspected.
func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/api/mail/list", 200, 100*time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "/api/mail/thread/{id}", 401, time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, got["http_requests_total"]))
	assert.Contains(t, got, "http_request_duration_seconds")
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationSend, StatusError, 500*time.Millisecond)
	m.RecordMessageFetchFailures(ctx, OperationList, 3)
	m.RecordMessageFetchFailures(ctx, OperationList, 0)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, got["google_api_operations_total"]))
	assert.Equal(t, int64(3), sumValue(t, got["gmail_message_fetch_failures_total"]))
}

func TestMetrics_RecordOAuthExchange(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordOAuthExchange(ctx, GrantAuthorizationCode, OAuthResultSuccess)
	m.RecordOAuthExchange(ctx, GrantRefreshToken, OAuthResultFailure)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, got["oauth_exchanges_total"]))
}

func TestMetrics_RecordLLMCompletion_ModelLabel(t *testing.T) {
	tests := []struct {
		name      string
		detailed  bool
		wantModel bool
	}{
		{"model omitted by default", false, false},
		{"model with detailed labels", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, reader := newTestMetrics(t, tt.detailed)
			m.RecordLLMCompletion(context.Background(), "openai/gpt-4o-mini", StatusSuccess, time.Second)

			got := collect(t, reader)
			sum := got["llm_completions_total"].Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			_, hasModel := sum.DataPoints[0].Attributes.Value(attrModel)
			assert.Equal(t, tt.wantModel, hasModel)
		})
	}
}

func TestMetrics_RecordAssistantAction(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordAssistantAction(ctx, "compose")
	m.RecordAssistantAction(ctx, "")

	got := collect(t, reader)
	sum := got["assistant_actions_total"].Data.(metricdata.Sum[int64])
	actions := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attrAction)
		actions[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"compose": 1, "none": 1}, actions)
}

func TestMetrics_NilAndZeroAreNoOps(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	zero := &Metrics{}

	for _, m := range []*Metrics{nilMetrics, zero} {
		m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
		m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, StatusSuccess, time.Millisecond)
		m.RecordMessageFetchFailures(ctx, OperationSearch, 1)
		m.RecordBreakerStateChange(ctx, "gmail-api", "open")
		m.RecordOAuthExchange(ctx, GrantAuthorizationCode, OAuthResultSuccess)
		m.RecordLLMCompletion(ctx, "model", StatusError, time.Second)
		m.RecordAssistantAction(ctx, "navigate")
	}
}
