package instrumentation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
)

// MailOperation captures a mutating mailbox operation for audit logging
// (send, reply, mark-read, draft, trash).
//
// # Privacy Considerations
//
// Recipients are PII. Unless the audit logger is configured with IncludePII,
// only hashed recipients and their domains are written.
type MailOperation struct {
	// Operation name (send, reply, mark_read, create_draft, trash)
	Operation string

	// RequestID correlates the audit line with the access log.
	RequestID string

	// Target
	Recipients []string
	MessageIDs []string
	ThreadID   string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewMailOperation creates a new MailOperation with timing started.
// Call Complete() when the operation finishes.
func NewMailOperation(operation string) *MailOperation {
	return &MailOperation{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// WithRequestID sets the request correlation ID.
func (op *MailOperation) WithRequestID(id string) *MailOperation {
	op.RequestID = id
	return op
}

// WithRecipients sets the addressed recipients.
func (op *MailOperation) WithRecipients(recipients ...string) *MailOperation {
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			op.Recipients = append(op.Recipients, r)
		}
	}
	return op
}

// WithMessages sets the affected message IDs and thread.
func (op *MailOperation) WithMessages(threadID string, messageIDs ...string) *MailOperation {
	op.ThreadID = threadID
	op.MessageIDs = append(op.MessageIDs, messageIDs...)
	return op
}

// WithSpanContext extracts trace context from the current span.
func (op *MailOperation) WithSpanContext(ctx context.Context) *MailOperation {
	op.TraceID = GetTraceID(ctx)
	op.SpanID = GetSpanID(ctx)
	return op
}

// Complete marks the operation as completed and calculates duration.
func (op *MailOperation) Complete(err error) *MailOperation {
	op.Duration = time.Since(op.StartTime)
	op.Success = err == nil
	if err != nil {
		op.Error = err.Error()
	}
	return op
}

// Status returns "success" or "error" based on the Success field.
func (op *MailOperation) Status() string {
	if op.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes with recipients hashed.
func (op *MailOperation) LogAttrs() []slog.Attr {
	attrs := op.baseAttrs()
	if len(op.Recipients) > 0 {
		hashed := make([]string, len(op.Recipients))
		domains := make([]string, len(op.Recipients))
		for i, r := range op.Recipients {
			hashed[i] = hashRecipient(r)
			domains[i] = ExtractUserDomain(r)
		}
		attrs = append(attrs,
			slog.Any("recipient_hashes", hashed),
			slog.Any("recipient_domains", domains),
		)
	}
	return op.appendTail(attrs)
}

// LogAuditAttrs returns slog attributes including full recipient addresses.
//
// # Security Warning
//
// This method includes PII. Route audit logs to storage with appropriate access controls.
func (op *MailOperation) LogAuditAttrs() []slog.Attr {
	attrs := op.baseAttrs()
	if len(op.Recipients) > 0 {
		attrs = append(attrs, slog.Any("recipients", op.Recipients))
	}
	return op.appendTail(attrs)
}

func (op *MailOperation) baseAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", op.Operation),
		slog.Duration("duration", op.Duration),
		slog.Bool("success", op.Success),
	}
	if op.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", op.RequestID))
	}
	if len(op.MessageIDs) > 0 {
		attrs = append(attrs, slog.Int("message_count", len(op.MessageIDs)))
	}
	if op.ThreadID != "" {
		attrs = append(attrs, slog.String("thread_id", op.ThreadID))
	}
	return attrs
}

func (op *MailOperation) appendTail(attrs []slog.Attr) []slog.Attr {
	if op.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", op.TraceID))
	}
	if op.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", op.SpanID))
	}
	if op.Error != "" {
		attrs = append(attrs, slog.String("error", op.Error))
	}
	return attrs
}

func hashRecipient(addr string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(addr))))
	return hex.EncodeToString(sum[:8])
}

// AuditLogger writes audit records for mutating mail operations.
// A nil *AuditLogger is a valid no-op.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("log_type", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogMailOperation writes one audit line for op.
func (al *AuditLogger) LogMailOperation(ctx context.Context, op *MailOperation) {
	if al == nil || !al.enabled || op == nil {
		return
	}

	attrs := op.LogAttrs()
	if al.includePII {
		attrs = op.LogAuditAttrs()
	}

	if op.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "mail_operation", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "mail_operation_failed", attrs...)
	}
}
