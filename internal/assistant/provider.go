package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/teemow/mailai/internal/config"
	"github.com/teemow/mailai/internal/instrumentation"
	"github.com/teemow/mailai/internal/logging"
)

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("OpenRouter API key not configured") //nolint:staticcheck // surfaced verbatim to clients

// Provider produces a raw completion for an ordered conversation.
type Provider interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// OpenRouter talks to an OpenAI-compatible chat-completion endpoint.
type OpenRouter struct {
	client      openai.Client
	configured  bool
	model       string
	temperature float64
	timeout     time.Duration
	metrics     *instrumentation.Metrics
}

// ProviderOption configures an OpenRouter provider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	httpClient *http.Client
	metrics    *instrumentation.Metrics
}

// WithProviderHTTPClient overrides the HTTP client used for completions.
func WithProviderHTTPClient(c *http.Client) ProviderOption {
	return func(o *providerOptions) { o.httpClient = c }
}

// WithProviderMetrics records completion counts and latency.
func WithProviderMetrics(m *instrumentation.Metrics) ProviderOption {
	return func(o *providerOptions) { o.metrics = m }
}

// NewOpenRouter builds a provider from cfg. A missing API key is reported by
// Complete, not here.
func NewOpenRouter(cfg config.LLMConfig, opts ...ProviderOption) *OpenRouter {
	var o providerOptions
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.AppURL != "" {
		clientOpts = append(clientOpts, option.WithHeader("HTTP-Referer", cfg.AppURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultLLMTimeout
	}

	return &OpenRouter{
		client:      openai.NewClient(clientOpts...),
		configured:  cfg.APIKey != "",
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		metrics:     o.metrics,
	}
}

// Complete sends messages and returns the first choice's content.
func (p *OpenRouter) Complete(ctx context.Context, messages []ChatMessage) (content string, err error) {
	if !p.configured {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ctx, span := instrumentation.StartLLMSpan(ctx, p.model)
	start := time.Now()
	defer func() {
		instrumentation.EndSpan(span, err)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		p.metrics.RecordLLMCompletion(ctx, p.model, status, time.Since(start))
	}()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    toParams(messages),
		Temperature: openai.Float(p.temperature),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("chat completion failed",
			logging.Operation("llm.complete"),
			logging.Model(p.model),
			logging.Err(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	logging.FromContext(ctx).Debug("chat completion finished",
		logging.Model(p.model),
		slog.Int64("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}

func toParams(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
