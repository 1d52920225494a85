package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/teemow/mailai/internal/instrumentation"
)

// Default values applied before any file, environment or flag overrides.
const (
	DefaultHTTPAddr         = ":8000"
	DefaultRedirectURI      = "http://localhost:3000/api/auth/callback"
	DefaultLLMBaseURL       = "https://openrouter.ai/api/v1"
	DefaultLLMModel         = "openai/gpt-4o-mini"
	DefaultLLMTemperature   = 0.3
	DefaultLLMTimeout       = 60 * time.Second
	DefaultAppURL           = "http://localhost:3000"
	DefaultFetchConcurrency = 10
	DefaultMetricsAddr      = ":9090"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"

	// MaxFetchConcurrency caps the per-request Gmail fan-out.
	MaxFetchConcurrency = 50
)

// Config is the process-wide configuration. It is built once at startup and
// handed to each component; nothing reads the environment after that.
type Config struct {
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string `yaml:"httpAddr"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	// An empty list allows every origin.
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`

	Google  GoogleConfig  `yaml:"google"`
	LLM     LLMConfig     `yaml:"llm"`
	Gmail   GmailConfig   `yaml:"gmail"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`

	// Instrumentation configures metrics, tracing and audit logging.
	Instrumentation instrumentation.Config `yaml:"instrumentation"`
}

// GoogleConfig holds the OAuth client registered with Google.
type GoogleConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURI  string `yaml:"redirectUri"`
}

// HasCredentials reports whether both client ID and secret are set.
func (g GoogleConfig) HasCredentials() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`

	// AppURL is sent as the HTTP-Referer header so the provider can attribute traffic.
	AppURL string `yaml:"appUrl"`
}

// GmailConfig tunes the Gmail gateway.
type GmailConfig struct {
	// Endpoint overrides the Gmail API base URL (emulators, tests).
	Endpoint string `yaml:"endpoint"`

	// FetchConcurrency bounds parallel message fetches within one request.
	FetchConcurrency int `yaml:"fetchConcurrency"`

	// CircuitBreaker wraps upstream calls in a circuit breaker.
	CircuitBreaker bool `yaml:"circuitBreaker"`
}

// MetricsConfig holds configuration for the dedicated metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		HTTPAddr: DefaultHTTPAddr,
		Google: GoogleConfig{
			RedirectURI: DefaultRedirectURI,
		},
		LLM: LLMConfig{
			BaseURL:     DefaultLLMBaseURL,
			Model:       DefaultLLMModel,
			Temperature: DefaultLLMTemperature,
			Timeout:     DefaultLLMTimeout,
			AppURL:      DefaultAppURL,
		},
		Gmail: GmailConfig{
			FetchConcurrency: DefaultFetchConcurrency,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    DefaultMetricsAddr,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Instrumentation: instrumentation.Defaults(),
	}
}

// Validate checks ranges and URL shapes. Missing credentials are not an
// error here; handlers report them per request.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0.0 and 2.0, got %g", c.LLM.Temperature)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model must not be empty")
	}
	if err := validateURL("llm base url", c.LLM.BaseURL, true); err != nil {
		return err
	}
	if err := validateURL("app url", c.LLM.AppURL, false); err != nil {
		return err
	}
	if err := validateURL("google redirect uri", c.Google.RedirectURI, true); err != nil {
		return err
	}
	if err := validateURL("gmail endpoint", c.Gmail.Endpoint, false); err != nil {
		return err
	}

	if c.Gmail.FetchConcurrency < 1 || c.Gmail.FetchConcurrency > MaxFetchConcurrency {
		return fmt.Errorf("gmail fetch concurrency must be between 1 and %d, got %d", MaxFetchConcurrency, c.Gmail.FetchConcurrency)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}

	if err := c.Instrumentation.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}

	return nil
}

func validateURL(name, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s must not be empty", name)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", name, raw)
	}
	return nil
}
