package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/mailai/internal/config"
	"github.com/teemow/mailai/internal/instrumentation"
	"github.com/teemow/mailai/internal/logging"
)

// me is the Gmail user ID for the authenticated user.
const me = "me"

// Gateway creates per-request Gmail clients. It owns the shared transport,
// circuit breaker and telemetry but never stores user tokens.
type Gateway struct {
	endpoint    string
	httpClient  *http.Client
	concurrency int
	breaker     *gobreaker.CircuitBreaker
	metrics     *instrumentation.Metrics
	audit       *instrumentation.AuditLogger
	now         func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the base HTTP client that carries the bearer token.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) { g.httpClient = client }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithAuditLogger sets the audit logger for mutating operations.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(g *Gateway) { g.audit = a }
}

// WithClock overrides the time source for outgoing Date headers.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a Gateway from configuration.
func NewGateway(cfg config.GmailConfig, opts ...Option) *Gateway {
	g := &Gateway{
		endpoint:    cfg.Endpoint,
		concurrency: cfg.FetchConcurrency,
		now:         time.Now,
	}
	if g.concurrency <= 0 {
		g.concurrency = config.DefaultFetchConcurrency
	}
	for _, opt := range opts {
		opt(g)
	}
	if cfg.CircuitBreaker {
		g.breaker = newBreaker(g.metrics)
	}
	return g
}

// Client is a Gmail client bound to a single access token.
type Client struct {
	users *gmail.UsersService
	gw    *Gateway
}

// Client returns a Gmail client authenticated with accessToken.
// The token is forwarded unmodified; it is not validated or refreshed.
func (g *Gateway) Client(ctx context.Context, accessToken string) (*Client, error) {
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}

	base := ctx
	if g.httpClient != nil {
		base = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(base, ts))}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{users: svc.Users, gw: g}, nil
}

// call runs one upstream request inside a span, records its outcome and
// routes it through the circuit breaker when one is configured.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation, attrs...)
	start := time.Now()

	err := c.gw.execute(ctx, fn)

	instrumentation.EndSpan(span, err)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		logging.FromContext(ctx).Debug("gmail call failed",
			logging.Service(instrumentation.ServiceGmail),
			logging.Operation(operation),
			logging.Err(err))
	}
	c.gw.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))

	return err
}

func (g *Gateway) execute(ctx context.Context, fn func(context.Context) error) error {
	if g.breaker == nil {
		return fn(ctx)
	}
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

// audit starts an audit record for a mutating operation.
func (c *Client) audit(ctx context.Context, operation string) *instrumentation.MailOperation {
	return instrumentation.NewMailOperation(operation).
		WithRequestID(logging.RequestIDFromContext(ctx)).
		WithSpanContext(ctx)
}

func (c *Client) finishAudit(ctx context.Context, op *instrumentation.MailOperation, err error) {
	c.gw.audit.LogMailOperation(ctx, op.Complete(err))
}
