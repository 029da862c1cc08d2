package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/pending"
	"github.com/teemow/roombooking/internal/ui"
)

// Bookings is the booking service as seen by tools and HTTP handlers.
// *backend.Client implements it.
type Bookings interface {
	ListReservations(ctx context.Context) ([]booking.Reservation, error)
	GetReservation(ctx context.Context, id int64) (*booking.Reservation, error)
	CreateReservation(ctx context.Context, r booking.Reservation) (*booking.Reservation, error)
	UpdateReservation(ctx context.Context, id int64, r booking.Reservation) (*booking.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// Options configures a ServerContext.
type Options struct {
	// Bookings is required.
	Bookings Bookings

	// Pending defaults to an in-memory store.
	Pending pending.Store

	// Renderer defaults to the embedded assets without a base URL.
	Renderer *ui.Renderer

	// Logger defaults to slog.Default().
	Logger logging.Logger

	// DirectBooking registers the book_guest tool.
	DirectBooking bool
}

// ServerContext holds the state shared by every MCP session and HTTP
// request: the booking service, the pending slot and the renderer.
type ServerContext struct {
	ctx           context.Context
	cancel        context.CancelFunc
	bookings      Bookings
	pending       pending.Store
	renderer      *ui.Renderer
	logger        logging.Logger
	directBooking bool
	metrics       *instrumentation.Metrics
	auditLogger   *instrumentation.AuditLogger
	mu            sync.RWMutex
	shutdown      bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Bookings == nil {
		return nil, fmt.Errorf("booking service is required")
	}

	if opts.Pending == nil {
		opts.Pending = pending.NewMemoryStore()
	}

	if opts.Renderer == nil {
		assets, err := ui.Assets("")
		if err != nil {
			return nil, fmt.Errorf("failed to load web assets: %w", err)
		}
		opts.Renderer = ui.NewRenderer(assets, "")
	}

	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		bookings:      opts.Bookings,
		pending:       opts.Pending,
		renderer:      opts.Renderer,
		logger:        opts.Logger,
		directBooking: opts.DirectBooking,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Bookings returns the booking service client
func (sc *ServerContext) Bookings() Bookings {
	return sc.bookings
}

// Pending returns the staged reservation slot
func (sc *ServerContext) Pending() pending.Store {
	return sc.pending
}

// Renderer returns the page renderer
func (sc *ServerContext) Renderer() *ui.Renderer {
	return sc.renderer
}

// Logger returns the server logger
func (sc *ServerContext) Logger() logging.Logger {
	return sc.logger
}

// DirectBooking reports whether book_guest is enabled.
func (sc *ServerContext) DirectBooking() bool {
	return sc.directBooking
}

// SetMetrics sets the metrics recorder used by tools and HTTP middleware.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder. The result is never nil; without
// instrumentation it records nothing.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.metrics == nil {
		return &instrumentation.Metrics{}
	}
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and closes the pending store.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	if err := sc.pending.Close(); err != nil {
		return fmt.Errorf("failed to close pending store: %w", err)
	}
	return nil
}
