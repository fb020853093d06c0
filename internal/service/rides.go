package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

// RideService manages the driver-facing ride lifecycle: posting, editing
// and cancelling rides, and keeping the delayed completion job in step
// with the departure time. Job scheduling is best-effort throughout: a
// failed schedule or cancel is logged and the ride mutation stands; the
// completion sweep covers lost jobs.
type RideService struct {
	Rides     RideStore
	Scheduler JobScheduler
	Notify    Notifier
	Log       *slog.Logger
}

func NewRideService(rides RideStore, scheduler JobScheduler, notify Notifier, log *slog.Logger) *RideService {
	return &RideService{Rides: rides, Scheduler: scheduler, Notify: notify, Log: log}
}

// Create validates and persists a new ride for driverID, then schedules
// its completion job at the departure time.
func (s *RideService) Create(ctx context.Context, rd *model.Ride) (*model.Ride, error) {
	if err := rd.Validate(time.Now()); err != nil {
		return nil, err
	}
	if err := s.Rides.Create(ctx, rd); err != nil {
		return nil, err
	}
	if err := s.Scheduler.Schedule(ctx, rd.DepartureTime, JobKindCompleteRide, rd.ID); err != nil {
		s.Log.Warn("completion job scheduling failed, sweep will cover it", "ride", rd.ID, "err", err)
	}
	return rd, nil
}

// UpdateInput carries the editable ride fields. Nil pointers leave the
// field unchanged.
type UpdateInput struct {
	Origin         *model.Location
	Destination    *model.Location
	DepartureTime  *time.Time
	AvailableSeats *int
	PriceCents     *uint32
	Vehicle        *model.Vehicle
	SmokingAllowed *bool
	PetsAllowed    *bool
	AdditionalInfo *string
}

// Update edits a ride on behalf of its driver. When the departure time
// changes, the previously scheduled completion job is cancelled and a new
// one scheduled, and active passengers are notified of the change.
func (s *RideService) Update(ctx context.Context, rideID, driverID uint64, in UpdateInput) (*model.Ride, error) {
	rd, err := s.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if rd.DriverID != driverID {
		return nil, repository.ErrForbidden
	}
	if rd.Status != model.RideStatusActive {
		return nil, repository.ErrInvalidState
	}

	departureChanged := false
	if in.Origin != nil {
		rd.Origin = *in.Origin
	}
	if in.Destination != nil {
		rd.Destination = *in.Destination
	}
	if in.DepartureTime != nil && !in.DepartureTime.Equal(rd.DepartureTime) {
		rd.DepartureTime = *in.DepartureTime
		departureChanged = true
	}
	if in.AvailableSeats != nil {
		rd.AvailableSeats = *in.AvailableSeats
	}
	if in.PriceCents != nil {
		rd.PriceCents = *in.PriceCents
	}
	if in.Vehicle != nil {
		rd.Vehicle = *in.Vehicle
	}
	if in.SmokingAllowed != nil {
		rd.SmokingAllowed = *in.SmokingAllowed
	}
	if in.PetsAllowed != nil {
		rd.PetsAllowed = *in.PetsAllowed
	}
	if in.AdditionalInfo != nil {
		rd.AdditionalInfo = *in.AdditionalInfo
	}
	if err := rd.Validate(time.Now()); err != nil {
		return nil, err
	}
	if err := s.Rides.Update(ctx, rd); err != nil {
		return nil, err
	}

	if departureChanged {
		if err := s.Scheduler.Cancel(ctx, JobKindCompleteRide, rd.ID); err != nil {
			s.Log.Warn("completion job cancel failed", "ride", rd.ID, "err", err)
		}
		if err := s.Scheduler.Schedule(ctx, rd.DepartureTime, JobKindCompleteRide, rd.ID); err != nil {
			s.Log.Warn("completion job reschedule failed, sweep will cover it", "ride", rd.ID, "err", err)
		}
	}
	for _, p := range rd.Passengers {
		if p.Status != model.PassengerStatusPending && p.Status != model.PassengerStatusConfirmed {
			continue
		}
		if err := s.Notify.Notify(ctx, Notification{
			RecipientID: p.UserID,
			EventType:   EventRideUpdated,
			Title:       "Ride updated",
			Message:     fmt.Sprintf("The ride to %s you booked was updated by the driver.", rd.Destination.City),
			Data:        map[string]any{"ride_id": rd.ID},
		}); err != nil {
			s.Log.Error("notification dispatch failed after committed transition", "event", EventRideUpdated, "recipient", p.UserID, "err", err)
		}
	}
	return rd, nil
}

// Cancel cancels a ride outright on behalf of its driver, cancels the
// scheduled completion job with no replacement, and notifies every
// passenger still holding an active booking.
func (s *RideService) Cancel(ctx context.Context, rideID, driverID uint64, reason string) (*model.Ride, error) {
	rd, err := s.Rides.Cancel(ctx, rideID, driverID, reason)
	if err != nil {
		return nil, err
	}
	if err := s.Scheduler.Cancel(ctx, JobKindCompleteRide, rd.ID); err != nil {
		s.Log.Warn("completion job cancel failed", "ride", rd.ID, "err", err)
	}
	for _, p := range rd.Passengers {
		if p.Status != model.PassengerStatusPending && p.Status != model.PassengerStatusConfirmed {
			continue
		}
		if err := s.Notify.Notify(ctx, Notification{
			RecipientID: p.UserID,
			EventType:   EventBookingCancelled,
			Title:       "Ride cancelled",
			Message:     fmt.Sprintf("The ride to %s was cancelled by the driver.", rd.Destination.City),
			Data:        map[string]any{"ride_id": rd.ID},
		}); err != nil {
			s.Log.Error("notification dispatch failed after committed transition", "event", EventBookingCancelled, "recipient", p.UserID, "err", err)
		}
	}
	return rd, nil
}

// ListByDriver returns the caller's posted rides, newest departure first.
func (s *RideService) ListByDriver(ctx context.Context, driverID uint64) ([]model.Ride, error) {
	return s.Rides.ListByDriver(ctx, driverID)
}
