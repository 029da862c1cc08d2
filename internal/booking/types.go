package booking

import "fmt"

// Reservation is a booking of one room for one time window.
// JSON field names follow the booking service contract.
type Reservation struct {
	// ID is assigned by the booking service. Zero means not yet persisted.
	ID int64 `json:"id,omitempty"`

	// Department is the team making the booking (e.g., "Platform").
	Department string `json:"deptName"`

	// BookerName is the person responsible for the booking.
	BookerName string `json:"bookerName"`

	// RoomName must be one of the rooms returned by Rooms().
	RoomName string `json:"roomName"`

	// Date is the booking day in YYYY-MM-DD form.
	Date string `json:"date"`

	// StartTime and EndTime are HH:MM strings with StartTime < EndTime.
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`

	// Description is free text. The booking service calls it timeInfo.
	Description string `json:"timeInfo,omitempty"`
}

// TimeRange returns the human readable "date (start ~ end)" form used when
// no description is provided.
func (r Reservation) TimeRange() string {
	return fmt.Sprintf("%s (%s ~ %s)", r.Date, r.StartTime, r.EndTime)
}

// WithDefaults returns a copy of r with an empty Description replaced by
// TimeRange().
func (r Reservation) WithDefaults() Reservation {
	if r.Description == "" {
		r.Description = r.TimeRange()
	}
	return r
}

// Room describes a bookable meeting room.
type Room struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description"`
}

// Summary returns the short capacity description given to agents.
func (r Room) Summary() string {
	return fmt.Sprintf("capacity %d, %s", r.Capacity, r.Description)
}

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	// Field is the JSON name of the offending field, if any.
	Field string

	// Message is the user facing explanation.
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}
