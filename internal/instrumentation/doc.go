// Package instrumentation wires OpenTelemetry metrics and tracing into mailai.
//
// Metrics are exported to Prometheus by default (served by the dedicated
// metrics server), or pushed via OTLP / written to stdout during development.
//
// # Metrics
//
// HTTP:
//   - http_requests_total, http_request_duration_seconds by method, route pattern and status
//
// Google APIs:
//   - google_api_operations_total, google_api_operation_duration_seconds by service, operation and status
//   - gmail_message_fetch_failures_total counts messages dropped from list/search fan-out
//   - circuit_breaker_state_changes_total by breaker and new state
//   - oauth_exchanges_total by grant type and result
//
// Assistant:
//   - llm_completions_total, llm_completion_duration_seconds by status (and model with detailed labels)
//   - assistant_actions_total by normalized action type
//
// # Tracing
//
// Spans are created per inbound request (http <route>), per Google API call
// (google.<service>.<operation>) and per chat completion (llm.chat_completion).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: mailai)
//   - METRICS_DETAILED_LABELS (default: false)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
