package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DotEnvFiles are loaded in order when present. Variables already set in the
// real environment always win.
var DotEnvFiles = []string{".env.local", ".env"}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from defaults, an optional YAML file, dotenv files
// and the process environment, in increasing order of precedence.
// The result is not validated; callers apply flag overrides first.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := LoadDotEnv(DotEnvFiles...); err != nil {
		return cfg, err
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadFile decodes a YAML file over cfg. Keys absent from the file keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads the given dotenv files into the process environment,
// skipping files that do not exist.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.CORSAllowedOrigins = ParseList(v)
	}

	str("GOOGLE_CLIENT_ID", &cfg.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &cfg.Google.ClientSecret)
	str("GOOGLE_REDIRECT_URI", &cfg.Google.RedirectURI)

	str("OPENROUTER_API_KEY", &cfg.LLM.APIKey)
	str("OPENROUTER_BASE_URL", &cfg.LLM.BaseURL)
	str("OPENROUTER_MODEL", &cfg.LLM.Model)
	str("APP_URL", &cfg.LLM.AppURL)

	str("GMAIL_ENDPOINT", &cfg.Gmail.Endpoint)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	cfg.Instrumentation.ApplyEnv(lookup)

	var errs []error
	if v, ok := lookup("LLM_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			cfg.LLM.Temperature = f
		}
	}
	if v, ok := lookup("LLM_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TIMEOUT: %w", err))
		} else {
			cfg.LLM.Timeout = d
		}
	}
	if v, ok := lookup("GMAIL_FETCH_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GMAIL_FETCH_CONCURRENCY: %w", err))
		} else {
			cfg.Gmail.FetchConcurrency = n
		}
	}
	if v, ok := lookup("GMAIL_CIRCUIT_BREAKER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GMAIL_CIRCUIT_BREAKER: %w", err))
		} else {
			cfg.Gmail.CircuitBreaker = b
		}
	}
	if v, ok := lookup("METRICS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("METRICS_ENABLED: %w", err))
		} else {
			cfg.Metrics.Enabled = b
		}
	}

	return errors.Join(errs...)
}

// ParseList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func ParseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
