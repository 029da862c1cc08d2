// Package booking defines the reservation model shared by the backend client,
// the MCP tools and the browser UI.
//
// It holds the fixed room allow-list, field validation, the half-hour time
// slots used by the booking form and the schedule grid, and the occupancy
// computation that marks which (room, slot) cells are taken on a given date.
//
// Conflict detection and persistence are not implemented here. The external
// booking service owns them; this package only rejects input that can never
// be valid before it leaves the process.
package booking
