package booking

// Schedule is the occupancy grid of all rooms for one date.
type Schedule struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
	Rows  []Row    `json:"rows"`
}

// Row holds the cells of one room, aligned with Schedule.Slots.
type Row struct {
	Room  Room   `json:"room"`
	Cells []Cell `json:"cells"`
}

// Cell is one (room, slot) position. Reservation is set when the cell is
// occupied.
type Cell struct {
	Slot        string       `json:"slot"`
	Occupied    bool         `json:"occupied"`
	Reservation *Reservation `json:"reservation,omitempty"`
}

// BuildSchedule computes the grid for date. A cell is occupied when some
// reservation has the row's room, the given date and start <= slot < end.
// When several reservations overlap a cell the first one in input order wins.
func BuildSchedule(reservations []Reservation, date string) Schedule {
	slots := GridTimeSlots()
	sched := Schedule{Date: date, Slots: slots, Rows: make([]Row, 0, len(rooms))}

	for _, room := range rooms {
		row := Row{Room: room, Cells: make([]Cell, len(slots))}
		for i, slot := range slots {
			row.Cells[i] = Cell{Slot: slot}
			if r := FindOccupant(reservations, room.Name, date, slot); r != nil {
				row.Cells[i].Occupied = true
				row.Cells[i].Reservation = r
			}
		}
		sched.Rows = append(sched.Rows, row)
	}
	return sched
}

// FindOccupant returns the first reservation covering (room, date, slot), or
// nil when the cell is free.
func FindOccupant(reservations []Reservation, room, date, slot string) *Reservation {
	for i := range reservations {
		r := &reservations[i]
		if r.Date == date && r.RoomName == room && slot >= r.StartTime && slot < r.EndTime {
			found := *r
			return &found
		}
	}
	return nil
}
