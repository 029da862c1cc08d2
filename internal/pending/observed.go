package pending

import (
	"context"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
)

// observedStore records slot transitions as spans, metrics and log lines.
type observedStore struct {
	Store
	metrics *instrumentation.Metrics
	logger  logging.Logger
}

// WithObservability wraps store so every transition is counted and logged.
// A nil metrics or logger disables that half.
func WithObservability(store Store, metrics *instrumentation.Metrics, logger logging.Logger) Store {
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &observedStore{Store: store, metrics: metrics, logger: logger}
}

func (s *observedStore) Stage(ctx context.Context, r booking.Reservation) (bool, error) {
	ctx, span := instrumentation.StartSpan(ctx, "pending.stage",
		instrumentation.NewSpanAttributeBuilder().WithRoom(r.RoomName).WithDate(r.Date).Build()...)
	defer span.End()

	overwritten, err := s.Store.Stage(ctx, r)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.logger.Error("failed to stage reservation", logging.Err(err))
		return false, err
	}

	s.metrics.RecordPendingEvent(ctx, instrumentation.PendingEventStaged)
	if overwritten {
		instrumentation.AddSpanEvent(span, instrumentation.PendingEventOverwritten)
		s.metrics.RecordPendingEvent(ctx, instrumentation.PendingEventOverwritten)
		s.logger.Warn("staged reservation replaced an unconsumed one", logging.Room(r.RoomName))
	}
	s.logger.Info("reservation staged",
		logging.Room(r.RoomName),
		logging.Date(r.Date),
		logging.BookerHash(r.BookerName))
	return overwritten, nil
}

func (s *observedStore) Take(ctx context.Context) (*booking.Reservation, error) {
	ctx, span := instrumentation.StartSpan(ctx, "pending.take")
	defer span.End()

	r, err := s.Store.Take(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.logger.Error("failed to take staged reservation", logging.Err(err))
		return nil, err
	}
	if r == nil {
		instrumentation.AddSpanEvent(span, instrumentation.PendingEventEmpty)
		s.metrics.RecordPendingEvent(ctx, instrumentation.PendingEventEmpty)
		return nil, nil
	}
	instrumentation.AddSpanEvent(span, instrumentation.PendingEventTaken)
	s.metrics.RecordPendingEvent(ctx, instrumentation.PendingEventTaken)
	s.logger.Debug("staged reservation consumed", logging.Room(r.RoomName))
	return r, nil
}

func (s *observedStore) Clear(ctx context.Context) error {
	ctx, span := instrumentation.StartSpan(ctx, "pending.clear")
	defer span.End()

	if err := s.Store.Clear(ctx); err != nil {
		instrumentation.SetSpanError(span, err)
		s.logger.Error("failed to clear staged reservation", logging.Err(err))
		return err
	}
	s.metrics.RecordPendingEvent(ctx, instrumentation.PendingEventCleared)
	return nil
}
