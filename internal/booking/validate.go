package booking

import (
	"strings"
	"time"
)

const (
	// DateLayout is the layout of Reservation.Date.
	DateLayout = "2006-01-02"

	// TimeLayout is the layout of Reservation.StartTime and EndTime.
	TimeLayout = "15:04"
)

// Validate checks a reservation that is about to be written to the booking
// service. Department and booker are required in addition to the checks done
// by ValidateForStaging.
func (r Reservation) Validate() error {
	if strings.TrimSpace(r.Department) == "" {
		return &ValidationError{Field: "deptName", Message: "department is required"}
	}
	if strings.TrimSpace(r.BookerName) == "" {
		return &ValidationError{Field: "bookerName", Message: "booker name is required"}
	}
	return r.ValidateForStaging()
}

// ValidateForStaging checks the fields needed to pre-fill the booking form.
// Department and booker may still be filled in by the user.
func (r Reservation) ValidateForStaging() error {
	if !IsValidRoom(r.RoomName) {
		return unknownRoomError(r.RoomName)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return &ValidationError{Field: "date", Message: "expected YYYY-MM-DD, got '" + r.Date + "'"}
	}
	if !isClock(r.StartTime) {
		return &ValidationError{Field: "startTime", Message: "expected HH:MM, got '" + r.StartTime + "'"}
	}
	if !isClock(r.EndTime) {
		return &ValidationError{Field: "endTime", Message: "expected HH:MM, got '" + r.EndTime + "'"}
	}
	return ValidateTimeRange(r.StartTime, r.EndTime)
}

// ValidateTimeRange rejects windows where end is not strictly after start.
// Both values are zero padded HH:MM so string order equals time order.
func ValidateTimeRange(start, end string) error {
	if start >= end {
		return &ValidationError{Field: "endTime", Message: "end time must be after start time"}
	}
	return nil
}

// isClock requires the zero padded HH:MM form; time.Parse alone would accept "9:00".
func isClock(s string) bool {
	if len(s) != len(TimeLayout) {
		return false
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}
