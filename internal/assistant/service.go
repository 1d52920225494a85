package assistant

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/mailai/internal/instrumentation"
	"github.com/teemow/mailai/internal/logging"
)

// Request is an assistant turn as posted by the client.
type Request struct {
	Message string               `json:"message"`
	Context *ConversationContext `json:"context,omitempty"`
	History []ChatMessage        `json:"history,omitempty"`
}

// Service answers assistant requests.
type Service struct {
	provider Provider
	metrics  *instrumentation.Metrics
}

// NewService returns a Service backed by provider. metrics may be nil.
func NewService(provider Provider, metrics *instrumentation.Metrics) *Service {
	return &Service{provider: provider, metrics: metrics}
}

// Respond builds the conversation, calls the provider and normalizes its
// reply. Provider errors are returned unchanged; malformed output is not an error.
func (s *Service) Respond(ctx context.Context, req Request) (Reply, error) {
	if req.Message == "" {
		return Reply{}, errors.New("message is required")
	}

	ctx, span := instrumentation.StartSpan(ctx, "assistant.respond",
		attribute.Int("assistant.history_turns", len(req.History)))
	var err error
	defer func() { instrumentation.EndSpan(span, err) }()

	var convo ConversationContext
	if req.Context != nil {
		convo = *req.Context
	}

	var raw string
	raw, err = s.provider.Complete(ctx, BuildMessages(convo, req.Message, req.History))
	if err != nil {
		return Reply{}, err
	}

	reply := Normalize(raw)

	actionType := TypeNone
	if reply.Action != nil {
		actionType = reply.Action.Type()
	}
	s.metrics.RecordAssistantAction(ctx, actionType)
	logging.WithService(logging.FromContext(ctx), "assistant").Info("assistant replied",
		logging.Action(actionType),
		logging.UserHash(convo.UserEmail))

	return reply, nil
}
