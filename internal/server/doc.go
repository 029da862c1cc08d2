// Package server provides the shared server context and the HTTP surface of
// the room booking service.
//
// # Key Components
//
// ServerContext owns what every request shares: the booking service client,
// the pending reservation slot, the page renderer, metrics and the audit
// logger.
//
// HTTPServer serves on one port:
//   - /mcp: streamable HTTP MCP endpoint, a fresh stateless server per request
//   - /api/guests, /api/guests/{id}: same-origin proxy to the booking service
//   - /api/schedule, /api/rooms: occupancy grid and room list
//   - /healthz, /readyz, /healthz/detailed: Kubernetes probes
//   - everything else: the single page application
//
// Requests pass through panic recovery, request metrics and CORS. /mcp and
// /api are rate limited per client IP.
//
// MetricsServer exposes Prometheus metrics on a dedicated port.
package server
