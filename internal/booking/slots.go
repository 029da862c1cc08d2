package booking

import "fmt"

const (
	dayStartMinutes = 9 * 60
	formEndMinutes  = 19 * 60
	gridEndMinutes  = 18*60 + 30
	slotStepMinutes = 30
)

// TimeSlot is one half-hour boundary offered by the booking form.
type TimeSlot struct {
	// Value is the HH:MM form sent to the booking service.
	Value string `json:"value"`

	// Label is the 24h time prefixed with AM or PM.
	Label string `json:"label"`
}

// FormTimeSlots returns the selectable start/end times, 09:00 through 19:00
// inclusive.
func FormTimeSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, (formEndMinutes-dayStartMinutes)/slotStepMinutes+1)
	for m := dayStartMinutes; m <= formEndMinutes; m += slotStepMinutes {
		slots = append(slots, TimeSlot{Value: clock(m), Label: label(m)})
	}
	return slots
}

// GridTimeSlots returns the column headers of the daily schedule grid,
// 09:00 through 18:30. Each column covers [slot, slot+30m).
func GridTimeSlots() []string {
	slots := make([]string, 0, (gridEndMinutes-dayStartMinutes)/slotStepMinutes+1)
	for m := dayStartMinutes; m <= gridEndMinutes; m += slotStepMinutes {
		slots = append(slots, clock(m))
	}
	return slots
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// label prefixes the 24h clock with its period, e.g. "PM 13:30".
func label(minutes int) string {
	period := "AM"
	if minutes >= 12*60 {
		period = "PM"
	}
	return period + " " + clock(minutes)
}
