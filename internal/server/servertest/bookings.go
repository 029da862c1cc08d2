// Package servertest provides an in-memory booking service for tests of
// packages built on server.ServerContext.
package servertest

import (
	"context"
	"net/http"
	"sync"

	"github.com/teemow/roombooking/internal/backend"
	"github.com/teemow/roombooking/internal/booking"
)

// FakeBookings implements server.Bookings in memory. Create and Update
// validate like the real client. When Err is set every call except Ping
// returns it.
type FakeBookings struct {
	mu           sync.Mutex
	Reservations []booking.Reservation
	NextID       int64
	Err          error
	PingErr      error

	// Creates counts successful CreateReservation calls.
	Creates int
}

// ListReservations returns a copy of all reservations.
func (f *FakeBookings) ListReservations(_ context.Context) ([]booking.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]booking.Reservation, len(f.Reservations))
	copy(out, f.Reservations)
	return out, nil
}

// GetReservation returns the reservation with id or a 404 APIError.
func (f *FakeBookings) GetReservation(_ context.Context, id int64) (*booking.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, r := range f.Reservations {
		if r.ID == id {
			found := r
			return &found, nil
		}
	}
	return nil, notFound("get")
}

// CreateReservation validates r, assigns an id and stores it.
func (f *FakeBookings) CreateReservation(_ context.Context, r booking.Reservation) (*booking.Reservation, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.NextID++
	r = r.WithDefaults()
	r.ID = f.NextID
	f.Reservations = append(f.Reservations, r)
	f.Creates++
	return &r, nil
}

// UpdateReservation validates r and replaces the stored reservation.
func (f *FakeBookings) UpdateReservation(_ context.Context, id int64, r booking.Reservation) (*booking.Reservation, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for i := range f.Reservations {
		if f.Reservations[i].ID == id {
			r = r.WithDefaults()
			r.ID = id
			f.Reservations[i] = r
			return &r, nil
		}
	}
	return nil, notFound("update")
}

// DeleteReservation removes the reservation with id.
func (f *FakeBookings) DeleteReservation(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for i := range f.Reservations {
		if f.Reservations[i].ID == id {
			f.Reservations = append(f.Reservations[:i], f.Reservations[i+1:]...)
			return nil
		}
	}
	return notFound("delete")
}

// Ping returns PingErr.
func (f *FakeBookings) Ping(_ context.Context) error {
	return f.PingErr
}

func notFound(op string) error {
	return &backend.APIError{Op: op, StatusCode: http.StatusNotFound}
}

// FocusRoom returns a valid one-hour reservation of the Focus Room on
// 2024-05-01 for booker.
func FocusRoom(booker string) booking.Reservation {
	return booking.Reservation{
		Department: "Platform",
		BookerName: booker,
		RoomName:   "Focus Room",
		Date:       "2024-05-01",
		StartTime:  "09:00",
		EndTime:    "10:00",
	}
}
