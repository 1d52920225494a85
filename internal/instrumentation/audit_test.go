package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestMailOperation_Builders(t *testing.T) {
	op := NewMailOperation("reply").
		WithRequestID("req-1").
		WithRecipients("alice@example.com", " ", "bob@corp.io").
		WithMessages("thread-9", "m1")

	assert.Equal(t, []string{"alice@example.com", "bob@corp.io"}, op.Recipients)
	assert.Equal(t, "thread-9", op.ThreadID)
	assert.Equal(t, []string{"m1"}, op.MessageIDs)

	op.Complete(nil)
	assert.True(t, op.Success)
	assert.Equal(t, StatusSuccess, op.Status())

	op.Complete(errors.New("quota exceeded"))
	assert.False(t, op.Success)
	assert.Equal(t, StatusError, op.Status())
	assert.Equal(t, "quota exceeded", op.Error)
}

func TestAuditLogger_HashesRecipientsByDefault(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: true})

	op := NewMailOperation("send").WithRecipients("Alice@Example.com").Complete(nil)
	audit.LogMailOperation(context.Background(), op)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "mail_operation", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "audit", entry["log_type"])
	assert.NotContains(t, buf.String(), "Alice@Example.com")
	assert.Equal(t, []any{"example.com"}, entry["recipient_domains"])
	assert.Equal(t, []any{hashRecipient("alice@example.com")}, entry["recipient_hashes"])
}

func TestAuditLogger_IncludePII(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: true, IncludePII: true})

	op := NewMailOperation("create_draft").WithRecipients("alice@example.com").Complete(errors.New("boom"))
	audit.LogMailOperation(context.Background(), op)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "mail_operation_failed", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, []any{"alice@example.com"}, entry["recipients"])
	assert.Equal(t, "boom", entry["error"])
}

func TestAuditLogger_DisabledAndNil(t *testing.T) {
	var buf bytes.Buffer
	disabled := NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	disabled.LogMailOperation(context.Background(), NewMailOperation("trash").Complete(nil))
	assert.Empty(t, buf.String())

	var nilLogger *AuditLogger
	nilLogger.LogMailOperation(context.Background(), NewMailOperation("trash").Complete(nil))
}
