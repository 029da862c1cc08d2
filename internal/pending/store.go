package pending

import (
	"context"
	"sync/atomic"

	"github.com/teemow/roombooking/internal/booking"
)

// Store holds at most one staged reservation.
//
// Stage overwrites whatever is staged, Take reads and empties the slot in one
// step, and Clear empties it without reading. Two agents staging at nearly the
// same time race: the later Stage wins and the earlier payload is lost.
type Store interface {
	// Stage replaces the slot content. overwritten reports whether an
	// unconsumed reservation was discarded.
	Stage(ctx context.Context, r booking.Reservation) (overwritten bool, err error)

	// Take returns the staged reservation and empties the slot. It returns
	// nil when nothing is staged.
	Take(ctx context.Context) (*booking.Reservation, error)

	// Clear empties the slot.
	Clear(ctx context.Context) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	slot atomic.Pointer[booking.Reservation]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Stage implements Store
func (s *MemoryStore) Stage(_ context.Context, r booking.Reservation) (bool, error) {
	prev := s.slot.Swap(&r)
	return prev != nil, nil
}

// Take implements Store
func (s *MemoryStore) Take(_ context.Context) (*booking.Reservation, error) {
	return s.slot.Swap(nil), nil
}

// Clear implements Store
func (s *MemoryStore) Clear(_ context.Context) error {
	s.slot.Store(nil)
	return nil
}

// Ping implements Store
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
