package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mark3labs/mcp-go/util"

	"github.com/teemow/roombooking/internal/logging"
	"github.com/teemow/roombooking/internal/ui"
)

// MCPEndpointPath is where the streamable HTTP transport is mounted.
const MCPEndpointPath = "/mcp"

// MCPServerFactory builds an MCP server with every tool and resource
// registered.
type MCPServerFactory func() (*mcpserver.MCPServer, error)

// HTTPServerConfig configures the public HTTP server.
type HTTPServerConfig struct {
	// Addr is the listen address (e.g., ":8080").
	Addr string

	// NewMCPServer is called once per MCP request. Required.
	NewMCPServer MCPServerFactory

	// DisableStreaming answers MCP requests with plain JSON only.
	DisableStreaming bool

	// RateLimit is requests per second per client IP on /mcp and /api.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Version is reported by /healthz/detailed.
	Version string
}

// HTTPServer serves the booking UI, the same-origin API proxy, the MCP
// endpoint and the health probes on one port.
type HTTPServer struct {
	sc      *ServerContext
	config  HTTPServerConfig
	health  *HealthChecker
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewHTTPServer wires the routes and middleware.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if sc == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if config.NewMCPServer == nil {
		return nil, fmt.Errorf("MCP server factory is required")
	}

	s := &HTTPServer{
		sc:     sc,
		config: config,
		health: NewHealthChecker(sc, config.Version),
	}

	limiter := NewIPRateLimiter(config.RateLimit, config.RateBurst)
	limited := func(h http.Handler) http.Handler {
		return rateLimitMiddleware(limiter, sc.Metrics, sc.Logger(), h)
	}

	api := http.NewServeMux()
	s.registerAPI(api)

	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, limited(s.mcpHandler()))
	mux.Handle("/api/", limited(api))
	s.health.RegisterHealthEndpoints(mux)
	mux.HandleFunc("/", s.handleStatic)

	var h http.Handler = mux
	h = corsMiddleware(h)
	h = recoveryMiddleware(sc.Logger(), h)
	h = metricsMiddleware(sc.Metrics, h)
	h = requestIDMiddleware(h)
	s.handler = h

	return s, nil
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Health returns the health checker backing the probe endpoints.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// mcpHandler builds a fresh stateless MCP server for each request. The
// pending slot in the server context is the only state shared between them.
func (s *HTTPServer) mcpHandler() http.Handler {
	var mcpLogger util.Logger = logging.DefaultLogger()
	if l, ok := s.sc.Logger().(util.Logger); ok {
		mcpLogger = l
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mcpSrv, err := s.config.NewMCPServer()
		if err != nil {
			s.sc.Logger().Error("failed to build MCP server", logging.Err(err))
			writeText(w, http.StatusInternalServerError, "Server Error")
			return
		}

		opts := []mcpserver.StreamableHTTPOption{
			mcpserver.WithEndpointPath(MCPEndpointPath),
			mcpserver.WithStateLess(true),
			mcpserver.WithLogger(mcpLogger),
		}
		if s.config.DisableStreaming {
			opts = append(opts, mcpserver.WithDisableStreaming(true))
		}

		mcpserver.NewStreamableHTTPServer(mcpSrv, opts...).ServeHTTP(w, r)
	})
}

// handleStatic serves the web assets. The root, index.html and every
// extension-less path render the application shell for client-side routing.
// This render never touches the pending slot.
func (s *HTTPServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || name == ui.IndexFile || path.Ext(name) == "" {
		page, err := s.sc.Renderer().Render(ui.RenderOptions{Embedded: false})
		if err != nil {
			s.sc.Logger().Error("failed to render page", logging.Err(err))
			writeText(w, http.StatusInternalServerError, "Server Error")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(page)
		}
		return
	}

	http.FileServerFS(s.sc.Renderer().FS()).ServeHTTP(w, r)
}

// Start listens and serves until Shutdown.
func (s *HTTPServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal closes ready once the listener is bound. ready may
// be nil.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	s.sc.Logger().Info("starting HTTP server", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Addr returns the bound address once listening, otherwise the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.sc.Logger().Info("shutting down HTTP server")
	return srv.Shutdown(ctx)
}
