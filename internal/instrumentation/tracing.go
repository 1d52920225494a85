package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for mailai.
const TracerName = "github.com/teemow/mailai"

// Span attribute keys.
const (
	// SpanAttrService is the Google service name attribute.
	SpanAttrService = "google.service"

	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "google.operation"

	// SpanAttrResourceID is the resource identifier (message ID, thread ID).
	SpanAttrResourceID = "mail.resource_id"

	// SpanAttrItemCount is the number of items in a batch operation.
	SpanAttrItemCount = "mail.item_count"

	// SpanAttrModel is the LLM model attribute.
	SpanAttrModel = "llm.model"

	// SpanAttrRequestID is the HTTP request ID attribute.
	SpanAttrRequestID = "http.request_id"

	// SpanAttrStatusCode is the HTTP response status attribute.
	SpanAttrStatusCode = "http.response.status_code"
)

// ResourceID returns the resource identifier span attribute.
func ResourceID(id string) attribute.KeyValue {
	return attribute.String(SpanAttrResourceID, id)
}

// ItemCount returns the batch size span attribute.
func ItemCount(n int) attribute.KeyValue {
	return attribute.Int(SpanAttrItemCount, n)
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartServerSpan starts a span for an inbound HTTP request.
func StartServerSpan(ctx context.Context, route, requestID string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "http "+route,
		trace.WithAttributes(attribute.String(SpanAttrRequestID, requestID)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a span for Google API operations.
// Includes service and operation attributes.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartLLMSpan starts a client span for a chat completion call.
func StartLLMSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "llm.chat_completion",
		trace.WithAttributes(attribute.String(SpanAttrModel, model)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetHTTPStatus records the response status on a server span. 5xx responses
// mark the span as failed.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(SpanAttrStatusCode, status))
	if status >= 500 {
		span.SetStatus(codes.Error, "server error")
	}
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
