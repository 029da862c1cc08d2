package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/roombooking/internal/backend"
	"github.com/teemow/roombooking/internal/instrumentation"
)

// clearEnv blanks every bound variable; viper ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("transport", TransportStreamableHTTP, "")
	fs.String("http-addr", DefaultHTTPAddr, "")
	fs.String("backend-url", backend.DefaultBaseURL, "")
	fs.Bool("direct-booking", false, "")
	fs.String("pending-store", PendingStoreMemory, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, TransportStreamableHTTP, cfg.Transport)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, backend.DefaultBaseURL, cfg.BackendURL)
	assert.Equal(t, time.Duration(0), cfg.BackendTimeout)
	assert.Equal(t, PendingStoreMemory, cfg.PendingStore)
	assert.Equal(t, 15*time.Minute, cfg.PendingTTL)
	assert.False(t, cfg.DirectBooking)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, ":9090", cfg.MetricsAddr)

	assert.Equal(t, "roombooking", cfg.Instrumentation.ServiceName)
	assert.True(t, cfg.Instrumentation.Enabled)
	assert.Equal(t, instrumentation.ExporterPrometheus, cfg.Instrumentation.MetricsExporter)
	assert.True(t, cfg.Instrumentation.AuditLogging.Enabled)
	assert.False(t, cfg.Instrumentation.AuditLogging.IncludePII)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("BOOKING_API_URL", "https://bookings.example.com")
	t.Setenv("BOOKING_API_TIMEOUT", "5s")
	t.Setenv("WIDGET_BASE_URL", "https://rooms.example.com")
	t.Setenv("PENDING_STORE", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("METRICS_DETAILED_LABELS", "true")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")
	t.Setenv("POD_NAMESPACE", "booking")
	t.Setenv("AUDIT_LOG_FILE", "/var/log/roombooking/audit.log")

	cfg, err := Load(testFlags(), "")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, "https://bookings.example.com", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "https://rooms.example.com", cfg.WidgetBaseURL)
	assert.Equal(t, PendingStoreRedis, cfg.PendingStore)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.Instrumentation.DetailedLabels)
	assert.True(t, cfg.Instrumentation.AuditLogging.IncludePII)
	assert.Equal(t, "booking", cfg.Instrumentation.K8sNamespace)
	assert.Equal(t, "/var/log/roombooking/audit.log", cfg.AuditLogFile)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("BOOKING_API_URL", "https://env.example.com")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{
		"--http-addr", "127.0.0.1:9000",
		"--backend-url", "https://flag.example.com",
		"--direct-booking",
	}))

	cfg, err := Load(fs, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "https://flag.example.com", cfg.BackendURL)
	assert.True(t, cfg.DirectBooking)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "roombooking.yaml")
	content := `transport: stdio
backend-url: https://file.example.com
rate-limit: 5
rate-burst: 10
pending-ttl: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BOOKING_API_URL", "https://env.example.com")

	cfg, err := Load(testFlags(), path)
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "https://env.example.com", cfg.BackendURL, "environment beats the file")
	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.Equal(t, 10, cfg.RateBurst)
	assert.Equal(t, time.Minute, cfg.PendingTTL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Transport:       TransportStreamableHTTP,
			BackendURL:      backend.DefaultBaseURL,
			PendingStore:    PendingStoreMemory,
			RateLimit:       1,
			RateBurst:       1,
			Instrumentation: instrumentation.DefaultConfig(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "stdio", mutate: func(c *Config) { c.Transport = TransportStdio }},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Transport = "sse" },
			wantErr: "unsupported transport type",
		},
		{
			name:    "missing backend",
			mutate:  func(c *Config) { c.BackendURL = "" },
			wantErr: "backend-url is required",
		},
		{
			name:    "backend scheme",
			mutate:  func(c *Config) { c.BackendURL = "ftp://example.com" },
			wantErr: "backend-url must use http or https",
		},
		{
			name:    "widget base without host",
			mutate:  func(c *Config) { c.WidgetBaseURL = "https://" },
			wantErr: "widget-base-url must include a host",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.BackendTimeout = -time.Second },
			wantErr: "backend-timeout",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.PendingStore = "etcd" },
			wantErr: "unsupported pending store",
		},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.PendingStore = PendingStoreRedis },
			wantErr: "redis-addr is required",
		},
		{
			name:    "burst too small",
			mutate:  func(c *Config) { c.RateBurst = 0 },
			wantErr: "rate-burst",
		},
		{
			name:   "rate limiting disabled",
			mutate: func(c *Config) { c.RateLimit = 0; c.RateBurst = 0 },
		},
		{
			name:    "instrumentation",
			mutate:  func(c *Config) { c.Instrumentation.TraceSamplingRate = 2 },
			wantErr: "trace sampling rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
