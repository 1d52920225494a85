package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/teemow/mailai/internal/config"
	"github.com/teemow/mailai/internal/instrumentation"
	"github.com/teemow/mailai/internal/logging"
)

// DefaultExpiresIn is reported when the token endpoint returns no expiry.
const DefaultExpiresIn = 3600

// ErrMissingCredentials is returned when the client ID or secret is not configured.
var ErrMissingCredentials = errors.New("Missing Google Credentials") //nolint:staticcheck // surfaced verbatim to the frontend

// TokenResponse is the token payload returned to the frontend.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Profile is the signed-in user's identity.
type Profile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// FallbackProfile is returned when the userinfo lookup fails.
var FallbackProfile = Profile{Name: "User", Email: ""}

// Exchanger performs the OAuth2 authorization-code flow against Google.
type Exchanger struct {
	conf             *oauth2.Config
	configured       bool
	httpClient       *http.Client
	userInfoEndpoint string
	metrics          *instrumentation.Metrics
	now              func() time.Time
}

// Option configures an Exchanger.
type Option func(*Exchanger)

// WithEndpoint overrides the Google OAuth2 endpoint.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(e *Exchanger) { e.conf.Endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for token and userinfo requests.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Exchanger) { e.httpClient = client }
}

// WithUserInfoEndpoint overrides the base URL of the userinfo API.
func WithUserInfoEndpoint(endpoint string) Option {
	return func(e *Exchanger) { e.userInfoEndpoint = endpoint }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(e *Exchanger) { e.metrics = m }
}

// WithClock overrides the time source used to compute expires_in.
func WithClock(now func() time.Time) Option {
	return func(e *Exchanger) { e.now = now }
}

// NewExchanger creates an Exchanger for the given client credentials.
func NewExchanger(cfg config.GoogleConfig, opts ...Option) *Exchanger {
	e := &Exchanger{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       DefaultOAuthScopes,
		},
		configured: cfg.HasCredentials(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configured reports whether client credentials are present.
func (e *Exchanger) Configured() bool {
	return e.configured
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}

// AuthURL returns the consent URL the user is redirected to.
// Offline access is requested so the exchange yields a refresh token.
func (e *Exchanger) AuthURL(state string) (string, error) {
	if !e.configured {
		return "", ErrMissingCredentials
	}
	return e.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Exchange trades an authorization code for tokens.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	if !e.configured {
		return nil, ErrMissingCredentials
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth, instrumentation.GrantAuthorizationCode)
	tok, err := e.conf.Exchange(e.clientContext(ctx), code)
	instrumentation.EndSpan(span, err)
	e.recordExchange(ctx, instrumentation.GrantAuthorizationCode, err)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return e.response(tok), nil
}

// Refresh trades a refresh token for a new access token. Google usually does
// not rotate the refresh token; the one supplied is returned in that case.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if !e.configured {
		return nil, ErrMissingCredentials
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth, instrumentation.GrantRefreshToken)
	tok, err := e.conf.TokenSource(e.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	instrumentation.EndSpan(span, err)
	e.recordExchange(ctx, instrumentation.GrantRefreshToken, err)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	return e.response(tok), nil
}

// Profile looks up the user behind accessToken. Lookup failures are logged
// and yield FallbackProfile.
func (e *Exchanger) Profile(ctx context.Context, accessToken string) Profile {
	start := time.Now()
	profile, err := e.fetchProfile(ctx, accessToken)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	e.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceUserInfo, instrumentation.OperationUserInfo, status, time.Since(start))

	if err != nil {
		logging.FromContext(ctx).Warn("userinfo lookup failed, using fallback profile",
			logging.Service(instrumentation.ServiceUserInfo),
			logging.Err(err))
		return FallbackProfile
	}
	logging.FromContext(ctx).Debug("userinfo resolved", logging.Domain(profile.Email))
	return profile
}

func (e *Exchanger) fetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceUserInfo, instrumentation.OperationUserInfo)
	var err error
	defer func() { instrumentation.EndSpan(span, err) }()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(e.clientContext(ctx), ts))}
	if e.userInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(e.userInfoEndpoint))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Profile{}, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	return Profile{Name: info.Name, Email: info.Email, Picture: info.Picture}, nil
}

// clientContext carries the configured HTTP client into x/oauth2.
func (e *Exchanger) clientContext(ctx context.Context) context.Context {
	if e.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

func (e *Exchanger) response(tok *oauth2.Token) *TokenResponse {
	return &TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    ExpiresIn(tok, e.now()),
	}
}

func (e *Exchanger) recordExchange(ctx context.Context, grant string, err error) {
	result := instrumentation.OAuthResultSuccess
	level := slog.LevelInfo
	if err != nil {
		result = instrumentation.OAuthResultFailure
		level = slog.LevelWarn
	}
	e.metrics.RecordOAuthExchange(ctx, grant, result)
	logging.FromContext(ctx).Log(ctx, level, "oauth token exchange",
		logging.Service(instrumentation.ServiceOAuth),
		slog.String("grant", grant),
		logging.Status(result),
		logging.Err(err))
}

// ExpiresIn returns the whole seconds until tok expires, never negative.
// Tokens without an expiry report DefaultExpiresIn.
func ExpiresIn(tok *oauth2.Token, now time.Time) int64 {
	if tok == nil || tok.Expiry.IsZero() {
		return DefaultExpiresIn
	}
	remaining := int64(tok.Expiry.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}
