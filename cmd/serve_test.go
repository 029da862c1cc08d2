package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/config"
	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/server"
	"github.com/teemow/roombooking/internal/server/servertest"
)

func testConfig() *config.Config {
	return &config.Config{
		Transport:    config.TransportStreamableHTTP,
		HTTPAddr:     "127.0.0.1:0",
		BackendURL:   "http://127.0.0.1:1",
		PendingStore: config.PendingStoreMemory,
	}
}

func serverTools(s *mcpserver.MCPServer) []string {
	var names []string
	for name := range s.ListTools() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestNewMCPServer(t *testing.T) {
	tests := []struct {
		name      string
		direct    bool
		wantTools []string
	}{
		{
			name:      "staging only",
			wantTools: []string{"check_schedule", "get_rooms_info", "open_booking_form"},
		},
		{
			name:      "direct booking",
			direct:    true,
			wantTools: []string{"book_guest", "check_schedule", "get_rooms_info", "open_booking_form"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := server.NewServerContext(context.Background(), server.Options{
				Bookings:      &servertest.FakeBookings{},
				Logger:        logging.Discard(),
				DirectBooking: tt.direct,
			})
			require.NoError(t, err)
			defer func() { _ = sc.Shutdown() }()

			s, err := newMCPServer(sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTools, serverTools(s))
		})
	}
}

func TestNewServerContext(t *testing.T) {
	cfg := testConfig()
	cfg.DirectBooking = true

	sc, err := newServerContext(context.Background(), cfg, nil, logging.Discard())
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	assert.True(t, sc.DirectBooking())

	_, err = sc.Pending().Stage(context.Background(), booking.Reservation{RoomName: "Focus Room"})
	require.NoError(t, err)
	staged, err := sc.Pending().Take(context.Background())
	require.NoError(t, err)
	require.NotNil(t, staged)
}

func TestNewServerContext_MissingStaticDir(t *testing.T) {
	cfg := testConfig()
	cfg.StaticDir = t.TempDir() + "/missing"

	_, err := newServerContext(context.Background(), cfg, nil, logging.Discard())
	assert.ErrorContains(t, err, "failed to load web assets")
}

func TestNewPendingStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "memory",
			mutate: func(c *config.Config) {},
		},
		{
			name: "redis",
			mutate: func(c *config.Config) {
				c.PendingStore = config.PendingStoreRedis
				c.RedisAddr = mr.Addr()
			},
		},
		{
			name: "redis unreachable",
			mutate: func(c *config.Config) {
				c.PendingStore = config.PendingStoreRedis
				c.RedisAddr = "127.0.0.1:1"
			},
			wantErr: "failed to create redis pending store",
		},
		{
			name:    "unknown",
			mutate:  func(c *config.Config) { c.PendingStore = "etcd" },
			wantErr: "unsupported pending store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			store, err := newPendingStore(context.Background(), cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { _ = store.Close() }()
			assert.NoError(t, store.Ping(context.Background()))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(testConfig(), &buf)
	logger.Debug("hidden")
	logger.Info("started", "addr", ":8080")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "one JSON line, debug suppressed")
	assert.Equal(t, "started", entry["msg"])

	buf.Reset()
	cfg := testConfig()
	cfg.Debug = true
	newLogger(cfg, &buf).Debug("visible")
	assert.Contains(t, buf.String(), "level=DEBUG msg=visible")
}

func TestNewAuditLog(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(testConfig(), &buf)

	got, release := newAuditLog(testConfig(), logger)
	assert.Same(t, logger, got, "audit records share the server log by default")
	release()

	cfg := testConfig()
	cfg.AuditLogFile = filepath.Join(t.TempDir(), "audit.log")
	got, release = newAuditLog(cfg, logger)
	got.Info("tool_executed")
	release()

	data, err := os.ReadFile(cfg.AuditLogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tool_executed")
	assert.NotContains(t, buf.String(), "tool_executed")
}

func TestAuditLoggerFollowsConfig(t *testing.T) {
	for _, includePII := range []string{"false", "true"} {
		t.Run("include_pii="+includePII, func(t *testing.T) {
			t.Setenv("AUDIT_LOGGING_INCLUDE_PII", includePII)
			t.Setenv("AUDIT_LOGGING_ENABLED", "true")
			t.Setenv("INSTRUMENTATION_ENABLED", "false")
			t.Setenv("AUDIT_LOG_FILE", "")
			t.Setenv("DEBUG", "")

			cfg, err := config.Load(nil, "")
			require.NoError(t, err)
			provider, err := instrumentation.NewProvider(context.Background(), cfg.Instrumentation)
			require.NoError(t, err)

			var buf bytes.Buffer
			auditLog, release := newAuditLog(cfg, newLogger(cfg, &buf))
			defer release()
			provider.AuditLogger(auditLog).LogToolInvocation(instrumentation.NewToolInvocation("book_guest").
				WithBooking("Platform", "Kim", "Focus Room", "2024-05-01").
				CompleteSuccess())

			if includePII == "true" {
				assert.Contains(t, buf.String(), `"booker":"Kim"`)
			} else {
				assert.NotContains(t, buf.String(), "Kim")
				assert.Contains(t, buf.String(), logging.AnonymizeName("Kim"))
			}
		})
	}
}

func TestServeFlags(t *testing.T) {
	t.Setenv("MCP_TRANSPORT", "")
	t.Setenv("BOOKING_API_URL", "")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServeFlags(fs)
	require.NoError(t, fs.Parse([]string{"--transport", "stdio", "--direct-booking", "--rate-limit", "5"}))

	cfg, err := config.Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, config.TransportStdio, cfg.Transport)
	assert.True(t, cfg.DirectBooking)
	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.NoError(t, cfg.Validate())
}

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "version", "generate-docs"})
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "roombooking version "+version+"\n", out.String())
}
