// Package resources provides the MCP resources of the room booking server.
//
// The booking widget (ui://widget/index.html) is the HTML application chat
// hosts embed next to tool results. Reading it consumes the booking staged
// by open_booking_form and renders the form pre-filled with it.
package resources
