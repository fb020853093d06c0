package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/observability"
)

// LifecycleService moves rides from ACTIVE to COMPLETED when their
// departure time has passed and force-declines bookings still PENDING at
// that point: a ride that has departed can no longer accept requests.
// Both entry points are idempotent; re-running them against an already
// completed ride changes nothing and emits no duplicate notifications.
type LifecycleService struct {
	Rides  RideStore
	Notify Notifier
	Log    *slog.Logger
}

func NewLifecycleService(rides RideStore, notify Notifier, log *slog.Logger) *LifecycleService {
	return &LifecycleService{Rides: rides, Notify: notify, Log: log}
}

// CompleteRide completes one ride if it is ACTIVE with a departure time
// in the past, then declines its stale PENDING bookings. Invoked by the
// delayed-job consumer at the scheduled departure time and by the sweep.
func (s *LifecycleService) CompleteRide(ctx context.Context, rideID uint64) error {
	rd, err := s.Rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if rd.Status == model.RideStatusActive && rd.DepartureTime.After(time.Now()) {
		// Not due yet; a stale or rescheduled job landed early.
		return nil
	}
	changed, err := s.Rides.Complete(ctx, rideID)
	if err != nil {
		return err
	}
	if changed {
		observability.RidesCompleted.Inc()
		s.Log.Info("ride completed", "ride", rideID)
	}
	if rd.Status == model.RideStatusCancelled {
		// Cancelled rides keep their booking history as-is.
		return nil
	}
	declined, err := s.Rides.DeclinePendingForRide(ctx, rideID)
	if err != nil {
		return err
	}
	for _, uid := range declined {
		if err := s.Notify.Notify(ctx, Notification{
			RecipientID: uid,
			EventType:   EventBookingDeclined,
			Title:       "Booking declined",
			Message:     "The ride departed before the driver responded to your request.",
			Data:        map[string]any{"ride_id": rideID},
		}); err != nil {
			observability.ConsistencyFaults.Inc()
			s.Log.Error("notification dispatch failed after committed transition", "event", EventBookingDeclined, "recipient", uid, "err", err)
		}
	}
	return nil
}

// CompleteDueRides sweeps every ACTIVE ride whose departure has passed.
// This is the safety net behind the delayed jobs: even when a job is
// lost, the sweep converges the store. Returns the number of rides
// examined.
func (s *LifecycleService) CompleteDueRides(ctx context.Context) (int, error) {
	ids, err := s.Rides.ListDepartedActive(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.CompleteRide(ctx, id); err != nil {
			s.Log.Error("completion sweep failed for ride", "ride", id, "err", err)
		}
	}
	observability.CompletionSweeps.Inc()
	return len(ids), nil
}

// RunSweeper blocks, running the completion sweep at the given interval
// until the context is cancelled. Started from main as a goroutine.
func (s *LifecycleService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.CompleteDueRides(ctx); err != nil {
				s.Log.Error("completion sweep failed", "err", err)
			} else if n > 0 {
				s.Log.Info("completion sweep finished", "due", n)
			}
		}
	}
}
