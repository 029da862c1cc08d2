// Package logging provides structured logging utilities for the roombooking
// server.
//
// All logging goes through the standard library's slog package. This package
// keeps attribute names consistent and keeps personal data out of logs.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithTool(slog.Default(), "open_booking_form")
//	logger.Info("reservation staged",
//	    logging.Room(r.RoomName),
//	    logging.BookerHash(r.BookerName))
//
// # Personal Data
//
// Booker names are hashed with AnonymizeName before they reach a log line.
// Bearer tokens for the booking service are never logged; use SanitizeToken
// when their presence needs to be visible.
package logging
