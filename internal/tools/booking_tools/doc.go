// Package booking_tools provides the MCP tools agents use to look up rooms,
// read the reservation schedule and book meeting rooms.
//
// Bookings go through one of two flows:
//
//   - open_booking_form stages the requested reservation in the pending
//     store and asks the host to render the booking widget, where the user
//     reviews and submits it. This tool is always available.
//   - book_guest writes the reservation to the booking service directly.
//     It is only registered when direct booking is enabled.
//
// check_schedule discards any staged reservation so the widget opens on the
// schedule rather than a stale form.
package booking_tools
