package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/observability"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

// BookingService is the state machine governing booking creation,
// acceptance, decline and cancellation. Each transition updates the
// ride's membership entry and the booking row atomically through
// RideStore.ApplyTransition, then emits exactly one notification to the
// counterpart user. Notification dispatch is best-effort: a failure is
// logged as a consistency fault and counted, never surfaced to the
// caller.
type BookingService struct {
	Rides    RideStore
	Bookings BookingStore
	Notify   Notifier
	Log      *slog.Logger
}

func NewBookingService(rides RideStore, bookings BookingStore, notify Notifier, log *slog.Logger) *BookingService {
	return &BookingService{Rides: rides, Bookings: bookings, Notify: notify, Log: log}
}

// notify delivers one notification, absorbing failures. A failed dispatch
// after a committed transition leaves the counterpart uninformed: the
// state change stands, the miss is logged distinctly so it can be
// operationally told apart from business-rule rejections.
func (s *BookingService) notify(ctx context.Context, n Notification) {
	if err := s.Notify.Notify(ctx, n); err != nil {
		observability.ConsistencyFaults.Inc()
		s.Log.Error("notification dispatch failed after committed transition",
			"event", n.EventType, "recipient", n.RecipientID, "err", err)
	}
}

// Create opens a PENDING booking for passengerID on rideID. Guards: the
// caller must not be the ride's driver, the ride must be bookable, at
// least one seat must remain, and the caller must not already hold a
// PENDING or CONFIRMED booking on the ride. A DECLINED or CANCELLED
// history re-enters at PENDING, reusing the existing rows.
func (s *BookingService) Create(ctx context.Context, rideID, passengerID uint64) (*model.Booking, error) {
	rd, err := s.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if passengerID == rd.DriverID {
		return nil, repository.ErrForbidden
	}
	if !rd.IsBookable(time.Now()) {
		return nil, repository.ErrInvalidState
	}
	_, booking, err := s.Rides.ApplyTransition(ctx, repository.Transition{
		RideID:          rideID,
		PassengerID:     passengerID,
		Seats:           1,
		To:              model.PassengerStatusPending,
		RequireBookable: true,
		CheckSeats:      true,
	})
	if err != nil {
		return nil, err
	}
	observability.BookingTransitions.WithLabelValues("create").Inc()
	s.notify(ctx, Notification{
		RecipientID: rd.DriverID,
		EventType:   EventBookingRequested,
		Title:       "New booking request",
		Message:     fmt.Sprintf("A passenger requested a seat on your ride to %s.", rd.Destination.City),
		Data:        map[string]any{"ride_id": rideID, "booking_id": booking.ID},
	})
	return booking, nil
}

// Accept confirms a PENDING booking on behalf of the ride's driver. The
// remaining-seat capacity is re-checked inside the store write: several
// passengers may be PENDING for more seats than remain, and only the
// accepts that fit may commit.
func (s *BookingService) Accept(ctx context.Context, bookingID, callerID uint64) (*model.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if callerID != b.DriverID {
		return nil, repository.ErrForbidden
	}
	_, booking, err := s.Rides.ApplyTransition(ctx, repository.Transition{
		RideID:          b.RideID,
		PassengerID:     b.PassengerID,
		To:              model.PassengerStatusConfirmed,
		From:            []string{model.PassengerStatusPending},
		RequireBookable: true,
		CheckSeats:      true,
	})
	if err != nil {
		return nil, err
	}
	observability.BookingTransitions.WithLabelValues("accept").Inc()
	s.notify(ctx, Notification{
		RecipientID: b.PassengerID,
		EventType:   EventBookingAccepted,
		Title:       "Booking confirmed",
		Message:     "The driver accepted your booking request.",
		Data:        map[string]any{"ride_id": b.RideID, "booking_id": b.ID},
	})
	return booking, nil
}

// Decline rejects a PENDING booking on behalf of the ride's driver. No
// capacity check is needed; declining never adds occupancy.
func (s *BookingService) Decline(ctx context.Context, bookingID, callerID uint64) (*model.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if callerID != b.DriverID {
		return nil, repository.ErrForbidden
	}
	_, booking, err := s.Rides.ApplyTransition(ctx, repository.Transition{
		RideID:          b.RideID,
		PassengerID:     b.PassengerID,
		To:              model.PassengerStatusDeclined,
		From:            []string{model.PassengerStatusPending},
		RequireBookable: true,
	})
	if err != nil {
		return nil, err
	}
	observability.BookingTransitions.WithLabelValues("decline").Inc()
	s.notify(ctx, Notification{
		RecipientID: b.PassengerID,
		EventType:   EventBookingDeclined,
		Title:       "Booking declined",
		Message:     "The driver declined your booking request.",
		Data:        map[string]any{"ride_id": b.RideID, "booking_id": b.ID},
	})
	return booking, nil
}

// Cancel ends a PENDING or CONFIRMED booking. The passenger cancelling
// their own booking yields CANCELLED; the driver removing a passenger
// yields DECLINED. Either way the membership entry and the booking row
// move together, freeing the seat when it was CONFIRMED.
func (s *BookingService) Cancel(ctx context.Context, bookingID, callerID uint64) (*model.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if callerID != b.PassengerID && callerID != b.DriverID {
		return nil, repository.ErrForbidden
	}
	target := model.PassengerStatusCancelled
	transition := "cancel"
	if callerID == b.DriverID {
		target = model.PassengerStatusDeclined
		transition = "remove"
	}
	_, booking, err := s.Rides.ApplyTransition(ctx, repository.Transition{
		RideID:        b.RideID,
		PassengerID:   b.PassengerID,
		To:            target,
		From:          []string{model.PassengerStatusPending, model.PassengerStatusConfirmed},
		RequireActive: true,
	})
	if err != nil {
		return nil, err
	}
	observability.BookingTransitions.WithLabelValues(transition).Inc()
	if callerID == b.PassengerID {
		s.notify(ctx, Notification{
			RecipientID: b.DriverID,
			EventType:   EventBookingCancelled,
			Title:       "Booking cancelled",
			Message:     "A passenger cancelled their booking on your ride.",
			Data:        map[string]any{"ride_id": b.RideID, "booking_id": b.ID},
		})
	} else {
		s.notify(ctx, Notification{
			RecipientID: b.PassengerID,
			EventType:   EventBookingDeclined,
			Title:       "Removed from ride",
			Message:     "The driver removed you from the ride.",
			Data:        map[string]any{"ride_id": b.RideID, "booking_id": b.ID},
		})
	}
	return booking, nil
}

// ListForRide returns a ride's bookings for its driver, newest first,
// optionally restricted to PENDING. Anyone else gets ErrForbidden.
func (s *BookingService) ListForRide(ctx context.Context, rideID, callerID uint64, pendingOnly bool) ([]repository.BookingWithPassenger, error) {
	rd, err := s.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if callerID != rd.DriverID {
		return nil, repository.ErrForbidden
	}
	return s.Bookings.ListForRide(ctx, rideID, pendingOnly)
}

// ListForPassenger returns the caller's booking history, newest first.
// With activeOnly set, declined and cancelled bookings are dropped.
func (s *BookingService) ListForPassenger(ctx context.Context, passengerID uint64, activeOnly bool) ([]model.Booking, error) {
	items, err := s.Bookings.ListForPassenger(ctx, passengerID)
	if err != nil || !activeOnly {
		return items, err
	}
	active := make([]model.Booking, 0, len(items))
	for _, b := range items {
		if b.Active() {
			active = append(active, b)
		}
	}
	return active, nil
}
