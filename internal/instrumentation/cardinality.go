package instrumentation

import (
	"path"
	"strings"

	"github.com/teemow/roombooking/internal/booking"
)

// Cardinality management helpers for metrics.
// Request paths and room names come from callers, so they are reduced to a
// bounded set of values before being used as labels.

// RoomLabel returns room if it is a bookable room and "other" otherwise.
//
// Example:
//
//	RoomLabel("Focus Room")  // "Focus Room"
//	RoomLabel("Ghost Room")  // "other"
func RoomLabel(room string) string {
	if booking.IsValidRoom(room) {
		return room
	}
	return "other"
}

// PathLabel maps a request path onto its route template.
//
// Example:
//
//	PathLabel("/api/guests/17")     // "/api/guests/{id}"
//	PathLabel("/static/js/app.js")  // "/static"
//	PathLabel("/edit-guest/3")      // "/app"
func PathLabel(p string) string {
	switch {
	case p == "/mcp", p == "/api/guests", p == "/api/schedule", p == "/api/rooms",
		p == "/healthz", p == "/readyz", p == "/healthz/detailed", p == "/":
		return p
	case strings.HasPrefix(p, "/api/guests/"):
		return "/api/guests/{id}"
	case strings.HasPrefix(p, "/api/"):
		return "/api/other"
	case path.Ext(p) != "":
		return "/static"
	default:
		return "/app"
	}
}

// Backend operation names used for metrics and spans.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationPing   = "ping"
)
