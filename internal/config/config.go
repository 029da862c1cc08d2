package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teemow/roombooking/internal/backend"
	"github.com/teemow/roombooking/internal/instrumentation"
)

// Transport types
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Pending store types
const (
	PendingStoreMemory = "memory"
	PendingStoreRedis  = "redis"
)

// Config holds the server configuration.
//
// Values are layered: built-in defaults, then the optional YAML file, then
// environment variables, then flags explicitly set on the command line.
type Config struct {
	// Transport is stdio or streamable-http.
	Transport string `mapstructure:"transport"`

	// HTTPAddr is the listen address for streamable-http.
	HTTPAddr string `mapstructure:"http-addr"`

	// DisableStreaming makes the MCP endpoint answer with plain JSON only.
	DisableStreaming bool `mapstructure:"disable-streaming"`

	// BackendURL is the booking service base URL.
	BackendURL string `mapstructure:"backend-url"`

	// BackendToken is sent as a bearer token to the booking service.
	BackendToken string `mapstructure:"backend-token"`

	// BackendTimeout bounds each booking service call. Zero means no client
	// side timeout.
	BackendTimeout time.Duration `mapstructure:"backend-timeout"`

	// WidgetBaseURL is injected as <base href> into rendered pages.
	WidgetBaseURL string `mapstructure:"widget-base-url"`

	// StaticDir overrides the embedded web assets.
	StaticDir string `mapstructure:"static-dir"`

	// DirectBooking registers book_guest, which writes without confirmation.
	DirectBooking bool `mapstructure:"direct-booking"`

	// PendingStore is memory or redis.
	PendingStore string `mapstructure:"pending-store"`

	RedisAddr     string `mapstructure:"redis-addr"`
	RedisPassword string `mapstructure:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db"`

	// PendingTTL expires a staged reservation nobody rendered.
	PendingTTL time.Duration `mapstructure:"pending-ttl"`

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`

	MetricsEnabled bool   `mapstructure:"metrics-enabled"`
	MetricsAddr    string `mapstructure:"metrics-addr"`

	Debug bool `mapstructure:"debug"`

	// AuditLogFile sends audit records to a rotated file instead of the
	// server log.
	AuditLogFile string `mapstructure:"audit-log-file"`

	// Instrumentation is assembled from the otel and audit keys.
	Instrumentation instrumentation.Config `mapstructure:"-"`
}

// envBindings maps configuration keys to the environment variables read
// for them, in priority order.
var envBindings = map[string][]string{
	"transport":         {"MCP_TRANSPORT"},
	"http-addr":         {"HTTP_ADDR"},
	"port":              {"PORT"},
	"disable-streaming": {"DISABLE_STREAMING"},
	"backend-url":       {"BOOKING_API_URL"},
	"backend-token":     {"BOOKING_API_TOKEN"},
	"backend-timeout":   {"BOOKING_API_TIMEOUT"},
	"widget-base-url":   {"WIDGET_BASE_URL"},
	"static-dir":        {"STATIC_DIR"},
	"direct-booking":    {"DIRECT_BOOKING"},
	"pending-store":     {"PENDING_STORE"},
	"redis-addr":        {"REDIS_ADDR"},
	"redis-password":    {"REDIS_PASSWORD"},
	"redis-db":          {"REDIS_DB"},
	"pending-ttl":       {"PENDING_TTL"},
	"rate-limit":        {"RATE_LIMIT"},
	"rate-burst":        {"RATE_BURST"},
	"metrics-enabled":   {"METRICS_ENABLED"},
	"metrics-addr":      {"METRICS_ADDR"},
	"debug":             {"DEBUG"},
	"audit-log-file":    {"AUDIT_LOG_FILE"},

	"otel-service-name":       {"OTEL_SERVICE_NAME"},
	"instrumentation-enabled": {"INSTRUMENTATION_ENABLED"},
	"metrics-exporter":        {"METRICS_EXPORTER"},
	"tracing-exporter":        {"TRACING_EXPORTER"},
	"otlp-endpoint":           {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"otlp-insecure":           {"OTEL_EXPORTER_OTLP_INSECURE"},
	"trace-sampling-rate":     {"OTEL_TRACES_SAMPLER_ARG"},
	"metrics-detailed-labels": {"METRICS_DETAILED_LABELS"},
	"audit-logging":           {"AUDIT_LOGGING_ENABLED"},
	"audit-include-pii":       {"AUDIT_LOGGING_INCLUDE_PII"},
	"k8s-namespace":           {"K8S_NAMESPACE", "POD_NAMESPACE"},
	"k8s-pod-name":            {"K8S_POD_NAME", "HOSTNAME"},
}

func setDefaults(v *viper.Viper) {
	instr := instrumentation.DefaultConfig()

	v.SetDefault("transport", TransportStreamableHTTP)
	// http-addr has no viper default so IsSet tells whether PORT may apply
	v.SetDefault("backend-url", backend.DefaultBaseURL)
	v.SetDefault("backend-timeout", time.Duration(0))
	v.SetDefault("pending-store", PendingStoreMemory)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("pending-ttl", 15*time.Minute)
	v.SetDefault("rate-limit", 20.0)
	v.SetDefault("rate-burst", 40)
	v.SetDefault("metrics-enabled", true)
	v.SetDefault("metrics-addr", ":9090")

	v.SetDefault("otel-service-name", instr.ServiceName)
	v.SetDefault("instrumentation-enabled", instr.Enabled)
	v.SetDefault("metrics-exporter", instr.MetricsExporter)
	v.SetDefault("tracing-exporter", instr.TracingExporter)
	v.SetDefault("trace-sampling-rate", instr.TraceSamplingRate)
	v.SetDefault("audit-logging", instr.AuditLogging.Enabled)
}

// DefaultHTTPAddr is used when neither http-addr nor PORT is set.
const DefaultHTTPAddr = ":8080"

// Load builds the configuration. flags may be nil; configFile may be empty.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if !v.IsSet("http-addr") {
		cfg.HTTPAddr = DefaultHTTPAddr
		if port := strings.TrimSpace(v.GetString("port")); port != "" {
			cfg.HTTPAddr = ":" + port
		}
	}

	cfg.Instrumentation = instrumentationConfig(v)

	return &cfg, nil
}

func instrumentationConfig(v *viper.Viper) instrumentation.Config {
	instr := instrumentation.DefaultConfig()
	instr.ServiceName = v.GetString("otel-service-name")
	instr.Enabled = v.GetBool("instrumentation-enabled")
	instr.MetricsExporter = v.GetString("metrics-exporter")
	instr.TracingExporter = v.GetString("tracing-exporter")
	instr.OTLPEndpoint = v.GetString("otlp-endpoint")
	instr.OTLPInsecure = v.GetBool("otlp-insecure")
	instr.TraceSamplingRate = v.GetFloat64("trace-sampling-rate")
	instr.DetailedLabels = v.GetBool("metrics-detailed-labels")
	instr.AuditLogging.Enabled = v.GetBool("audit-logging")
	instr.AuditLogging.IncludePII = v.GetBool("audit-include-pii")
	instr.K8sNamespace = v.GetString("k8s-namespace")
	instr.K8sPodName = v.GetString("k8s-pod-name")

	if hostname, err := os.Hostname(); err == nil {
		instr.ServiceInstanceID = hostname
	}
	return instr
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		errs = append(errs, fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", c.Transport))
	}

	if err := validateHTTPURL("backend-url", c.BackendURL, true); err != nil {
		errs = append(errs, err)
	}
	if err := validateHTTPURL("widget-base-url", c.WidgetBaseURL, false); err != nil {
		errs = append(errs, err)
	}

	if c.BackendTimeout < 0 {
		errs = append(errs, fmt.Errorf("backend-timeout must not be negative"))
	}

	switch c.PendingStore {
	case PendingStoreMemory:
	case PendingStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("redis-addr is required when pending-store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported pending store: %s (supported: memory, redis)", c.PendingStore))
	}

	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate-limit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("rate-burst must be at least 1 when rate limiting is enabled"))
	}

	if err := c.Instrumentation.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateHTTPURL(key, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", key)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, raw)
	}
	return nil
}
