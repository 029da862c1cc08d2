package booking

import "strings"

// rooms is the fixed allow-list, in display order.
var rooms = []Room{
	{Name: "Focus Room", Capacity: 4, Description: "small focused meetings"},
	{Name: "Creative Lab", Capacity: 8, Description: "mid-size creative sessions"},
	{Name: "Board Room", Capacity: 20, Description: "large executive meetings"},
}

// Rooms returns a copy of the bookable rooms in display order.
func Rooms() []Room {
	out := make([]Room, len(rooms))
	copy(out, rooms)
	return out
}

// RoomNames returns the names of all bookable rooms in display order.
func RoomNames() []string {
	names := make([]string, len(rooms))
	for i, r := range rooms {
		names[i] = r.Name
	}
	return names
}

// IsValidRoom reports whether name exactly matches a bookable room.
func IsValidRoom(name string) bool {
	_, ok := FindRoom(name)
	return ok
}

// FindRoom looks up a room by its exact name.
func FindRoom(name string) (Room, bool) {
	for _, r := range rooms {
		if r.Name == name {
			return r, true
		}
	}
	return Room{}, false
}

// RoomDetails maps room names to their capacity summaries.
func RoomDetails() map[string]string {
	details := make(map[string]string, len(rooms))
	for _, r := range rooms {
		details[r.Name] = r.Summary()
	}
	return details
}

func unknownRoomError(name string) *ValidationError {
	return &ValidationError{
		Field:   "roomName",
		Message: "'" + name + "' does not exist. Valid rooms: " + strings.Join(RoomNames(), ", "),
	}
}
