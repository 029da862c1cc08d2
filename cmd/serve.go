package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/roombooking/internal/backend"
	"github.com/teemow/roombooking/internal/config"
	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/pending"
	"github.com/teemow/roombooking/internal/resources"
	"github.com/teemow/roombooking/internal/server"
	"github.com/teemow/roombooking/internal/tools/booking_tools"
	"github.com/teemow/roombooking/internal/ui"
)

// DefaultShutdownTimeout bounds the graceful shutdown of the HTTP servers.
const DefaultShutdownTimeout = 30 * time.Second

// startupTimeout bounds how long a listener may take to come up.
const startupTimeout = 5 * time.Second

const serverInstructions = `Use get_rooms_info to learn the bookable rooms before booking.
To book a room, call open_booking_form with the requested room, date and time and then
render the booking widget so the user can review and submit the reservation.
Call check_schedule to show existing reservations.`

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server together with the booking
web application.

Supports multiple transport types:
  - streamable-http: MCP on /mcp plus the web application, the /api proxy
    and health probes on one port (default)
  - stdio: Standard input/output, MCP only

Configuration is read from defaults, an optional YAML file (--config),
environment variables and flags, later sources overriding earlier ones.

Booking Flow:
  By default, bookings are prepared with open_booking_form and confirmed by
  the user in the booking widget. Use --direct-booking to also register
  book_guest, which writes reservations without confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	addServeFlags(cmd.Flags())

	return cmd
}

// addServeFlags defines one flag per configuration key. Flags only take
// effect when set explicitly; otherwise environment and file values apply.
func addServeFlags(fs *pflag.FlagSet) {
	fs.Bool("debug", false, "Enable debug logging. Can also use DEBUG env var.")
	fs.String("transport", config.TransportStreamableHTTP, "Transport type: stdio or streamable-http. Can also use MCP_TRANSPORT env var.")
	fs.String("http-addr", config.DefaultHTTPAddr, "HTTP server address (for streamable-http transport). Defaults to :$PORT when PORT is set.")
	fs.Bool("disable-streaming", false, "Answer MCP requests with plain JSON only (for compatibility with certain clients)")

	fs.String("backend-url", backend.DefaultBaseURL, "Booking service base URL. Can also use BOOKING_API_URL env var.")
	fs.String("backend-token", "", "Bearer token for the booking service. Can also use BOOKING_API_TOKEN env var.")
	fs.Duration("backend-timeout", 0, "Timeout for each booking service call (0 disables the client side timeout)")

	fs.String("widget-base-url", "", "Public URL of this server, injected as <base href> into the booking widget. Can also use WIDGET_BASE_URL env var.")
	fs.String("static-dir", "", "Serve web assets from this directory instead of the embedded ones. Can also use STATIC_DIR env var.")
	fs.Bool("direct-booking", false, "Register book_guest, which writes reservations without user confirmation")

	fs.String("pending-store", config.PendingStoreMemory, "Where staged bookings are kept: memory or redis")
	fs.String("redis-addr", "localhost:6379", "Redis address for the redis pending store. Can also use REDIS_ADDR env var.")
	fs.String("redis-password", "", "Redis password. Can also use REDIS_PASSWORD env var.")
	fs.Int("redis-db", 0, "Redis database number")
	fs.Duration("pending-ttl", 15*time.Minute, "How long a staged booking waits to be rendered (redis store only)")

	fs.Float64("rate-limit", 20, "Requests per second per client IP on /mcp and /api (0 disables)")
	fs.Int("rate-burst", 40, "Burst size for the per client rate limit")

	fs.Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	fs.String("metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	fs.String("audit-log-file", "", "Write audit records to this rotated file instead of the server log. Can also use AUDIT_LOG_FILE env var.")
}

func runServe(cfg *config.Config) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol in stdio mode, so logs always go to stderr
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	logAdapter := logging.NewSlogAdapter(logger)

	// Initialize instrumentation provider
	instrConfig := cfg.Instrumentation
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if cfg.Transport != config.TransportStdio && cfg.MetricsEnabled && provider.PrometheusHandler() != nil {
		metricsServer, err = startMetricsServer(cfg.MetricsAddr, provider)
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "addr", metricsServer.Addr())
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	serverContext, err := newServerContext(shutdownCtx, cfg, metrics, logAdapter)
	if err != nil {
		return err
	}
	if provider.Enabled() {
		auditLog, closeAudit := newAuditLog(cfg, logger)
		defer closeAudit()
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(provider.AuditLogger(auditLog))
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	if cfg.DirectBooking {
		logger.Info("direct booking enabled: book_guest writes reservations without confirmation")
	}

	newMCP := func() (*mcpserver.MCPServer, error) {
		return newMCPServer(serverContext)
	}

	// Start the appropriate server based on transport type
	switch cfg.Transport {
	case config.TransportStdio:
		mcpSrv, err := newMCP()
		if err != nil {
			return err
		}
		return runStdioServer(mcpSrv)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, serverContext, cfg, newMCP, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Transport)
	}
}

// newLogger returns a JSON logger, or a text logger at debug level when
// debug is enabled.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.Debug {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// newAuditLog returns the logger for audit records and a function that
// releases it.
func newAuditLog(cfg *config.Config, logger *slog.Logger) (*slog.Logger, func()) {
	if cfg.AuditLogFile == "" {
		return logger, func() {}
	}
	auditLog, closer := logging.NewFileLogger(cfg.AuditLogFile)
	logger.Info("audit records are written to file", "path", cfg.AuditLogFile)
	return auditLog, func() {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close audit log", logging.Err(err))
		}
	}
}

// newServerContext builds the booking client, pending store and renderer
// described by cfg.
func newServerContext(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, logger logging.Logger) (*server.ServerContext, error) {
	bookings, err := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.BackendTimeout,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create booking client: %w", err)
	}

	store, err := newPendingStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	assets, err := ui.Assets(cfg.StaticDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load web assets: %w", err)
	}

	sc, err := server.NewServerContext(ctx, server.Options{
		Bookings:      bookings,
		Pending:       pending.WithObservability(store, metrics, logger),
		Renderer:      ui.NewRenderer(assets, cfg.WidgetBaseURL),
		Logger:        logger,
		DirectBooking: cfg.DirectBooking,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	return sc, nil
}

func newPendingStore(ctx context.Context, cfg *config.Config) (pending.Store, error) {
	switch cfg.PendingStore {
	case config.PendingStoreRedis:
		store, err := pending.NewRedisStore(ctx, pending.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.PendingTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis pending store: %w", err)
		}
		return store, nil
	case config.PendingStoreMemory, "":
		return pending.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported pending store: %s (supported: memory, redis)", cfg.PendingStore)
	}
}

// newMCPServer creates an MCP server with all tools and resources
// registered against sc.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("roombooking", version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions),
	)

	if err := registerAllTools(mcpSrv, sc); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Define all tool registrations
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Booking",
			register: func() error {
				return booking_tools.RegisterBookingTools(mcpSrv, sc)
			},
		},
		{
			name: "Widget Resources",
			register: func() error {
				return resources.RegisterWidgetResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

// startMetricsServer starts the metrics server and waits until it listens.
func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStreamableHTTPServer(ctx context.Context, sc *server.ServerContext, cfg *config.Config, newMCP server.MCPServerFactory, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(sc, server.HTTPServerConfig{
		Addr:             cfg.HTTPAddr,
		NewMCPServer:     newMCP,
		DisableStreaming: cfg.DisableStreaming,
		RateLimit:        cfg.RateLimit,
		RateBurst:        cfg.RateBurst,
		Version:          version,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return fmt.Errorf("HTTP server startup timed out")
	}

	logger.Info("roombooking server started",
		"addr", httpServer.Addr(),
		"mcp_endpoint", server.MCPEndpointPath,
		"backend", cfg.BackendURL,
		"backend_token", logging.SanitizeToken(cfg.BackendToken),
		"direct_booking", cfg.DirectBooking,
		"pending_store", cfg.PendingStore)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
