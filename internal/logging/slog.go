package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation     = "operation"
	KeyTool          = "tool"
	KeyRoom          = "room"
	KeyDate          = "date"
	KeyReservationID = "reservation_id"
	KeyBookerHash    = "booker_hash"
	KeyDuration      = "duration"
	KeyStatus        = "status"
	KeyStatusCode    = "status_code"
	KeyError         = "error"
	KeyRemoteAddr    = "remote_addr"
)

// Status values for consistent logging.
// Duplicated from the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithRoom returns a logger with the room attribute set.
func WithRoom(logger *slog.Logger, room string) *slog.Logger {
	return logger.With(slog.String(KeyRoom, room))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Room returns a slog attribute for the meeting room name.
func Room(room string) slog.Attr {
	return slog.String(KeyRoom, room)
}

// Date returns a slog attribute for a booking date.
func Date(date string) slog.Attr {
	return slog.String(KeyDate, date)
}

// ReservationID returns a slog attribute for a backend reservation id.
func ReservationID(id int64) slog.Attr {
	return slog.Int64(KeyReservationID, id)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// StatusCode returns a slog attribute for an HTTP status code.
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeName returns a hashed representation of a person's name for
// logging. Names are trimmed and lower-cased first so "Kim" and " kim "
// correlate.
func AnonymizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(name))
	return "booker:" + hex.EncodeToString(hash[:8])
}

// BookerHash returns a slog attribute with the anonymized booker name.
//
// Usage:
//
//	logger.Info("reservation staged", logging.BookerHash(r.BookerName))
func BookerHash(name string) slog.Attr {
	return slog.String(KeyBookerHash, AnonymizeName(name))
}

// SanitizeToken returns a masked version of a token for logging.
// Only the length is revealed.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// RemoteAddr returns a slog attribute for the client address with the port
// stripped.
func RemoteAddr(addr string) slog.Attr {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return slog.String(KeyRemoteAddr, addr)
}
