package common

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/roombooking/internal/booking"
)

// Argument names shared by the booking tools. They match the booking
// service's JSON field names so agents see one vocabulary.
const (
	ArgDepartment  = "deptName"
	ArgBookerName  = "bookerName"
	ArgRoomName    = "roomName"
	ArgDate        = "date"
	ArgStartTime   = "startTime"
	ArgEndTime     = "endTime"
	ArgDescription = "description"
)

// ReservationFromRequest builds a reservation from tool arguments. Missing
// arguments become empty strings; validation is left to the caller.
func ReservationFromRequest(request mcp.CallToolRequest) booking.Reservation {
	get := func(key string) string {
		return strings.TrimSpace(request.GetString(key, ""))
	}
	return booking.Reservation{
		Department:  get(ArgDepartment),
		BookerName:  get(ArgBookerName),
		RoomName:    get(ArgRoomName),
		Date:        get(ArgDate),
		StartTime:   get(ArgStartTime),
		EndTime:     get(ArgEndTime),
		Description: get(ArgDescription),
	}
}
