package instrumentation

import (
	"fmt"
	"strconv"
	"time"
)

// Config controls the OTel meter and tracer providers. It is part of the
// process configuration and filled from its YAML file and environment.
type Config struct {
	ServiceName    string `yaml:"serviceName"`
	ServiceVersion string `yaml:"-"`

	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string `yaml:"serviceInstanceId"`
	K8sNamespace      string `yaml:"k8sNamespace"`
	K8sPodName        string `yaml:"k8sPodName"`

	// Enabled turns metrics and tracing on. Audit logging is independent.
	Enabled bool `yaml:"enabled"`

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string `yaml:"metricsExporter"`

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string `yaml:"tracingExporter"`

	// OTLPEndpoint is a host:port without scheme, e.g. "localhost:4318".
	OTLPEndpoint string `yaml:"otlpEndpoint"`

	// OTLPInsecure disables TLS towards the collector. Spans carry message
	// and thread IDs, so keep this for local collectors.
	OTLPInsecure bool `yaml:"otlpInsecure"`

	// TraceSamplingRate is the parent-based ratio, between 0 and 1.
	TraceSamplingRate float64 `yaml:"traceSamplingRate"`

	// DetailedLabels adds the model label to LLM metrics.
	DetailedLabels bool `yaml:"detailedLabels"`

	AuditLogging AuditLoggingConfig `yaml:"auditLogging"`
}

// AuditLoggingConfig controls audit lines for mutating mail operations.
type AuditLoggingConfig struct {
	Enabled bool `yaml:"enabled"`

	// IncludePII logs recipient addresses verbatim instead of hashes.
	IncludePII bool `yaml:"includePII"`
}

// Defaults returns the instrumentation settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		ServiceName:       "mailai",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		AuditLogging:      AuditLoggingConfig{Enabled: true},
	}
}

// ApplyEnv overlays environment variables on c. Unset, empty or unparsable
// values keep the current setting.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	env := envReader(lookup)
	c.ServiceName = env.str("OTEL_SERVICE_NAME", c.ServiceName)
	c.ServiceInstanceID = env.str("OTEL_SERVICE_INSTANCE_ID", c.ServiceInstanceID)
	c.K8sNamespace = env.str("K8S_NAMESPACE", env.str("POD_NAMESPACE", c.K8sNamespace))
	c.K8sPodName = env.str("K8S_POD_NAME", env.str("HOSTNAME", c.K8sPodName))
	c.Enabled = env.boolean("INSTRUMENTATION_ENABLED", c.Enabled)
	c.MetricsExporter = env.str("METRICS_EXPORTER", c.MetricsExporter)
	c.TracingExporter = env.str("TRACING_EXPORTER", c.TracingExporter)
	c.OTLPEndpoint = env.str("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.OTLPInsecure = env.boolean("OTEL_EXPORTER_OTLP_INSECURE", c.OTLPInsecure)
	c.TraceSamplingRate = env.float("OTEL_TRACES_SAMPLER_ARG", c.TraceSamplingRate)
	c.DetailedLabels = env.boolean("METRICS_DETAILED_LABELS", c.DetailedLabels)
	c.AuditLogging.Enabled = env.boolean("AUDIT_LOGGING_ENABLED", c.AuditLogging.Enabled)
	c.AuditLogging.IncludePII = env.boolean("AUDIT_LOGGING_INCLUDE_PII", c.AuditLogging.IncludePII)
}

// Validate checks exporter names, the sampling ratio and OTLP endpoint presence.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	return nil
}

type envReader func(string) (string, bool)

func (e envReader) str(key, fallback string) string {
	if v, ok := e(key); ok && v != "" {
		return v
	}
	return fallback
}

func (e envReader) boolean(key string, fallback bool) bool {
	v, err := strconv.ParseBool(e.str(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func (e envReader) float(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(e.str(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

// Label values shared by metrics, spans and audit records.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"

	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"

	ServiceGmail    = "gmail"
	ServiceUserInfo = "userinfo"
	ServiceOAuth    = "oauth"
)

// Exporter names accepted by Config.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval for periodic metric readers.
const DefaultMetricInterval = 10 * time.Second
