// Package service holds the business core: ride search, the booking state
// machine and the ride lifecycle. Services depend on narrow interfaces so
// the core can be exercised against in-memory fakes; the MySQL
// repositories satisfy them in production.
package service

import (
	"context"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

// RideStore is the persistence surface for rides, their membership rows
// and the transactional booking transitions.
type RideStore interface {
	Create(ctx context.Context, rd *model.Ride) error
	Update(ctx context.Context, rd *model.Ride) error
	GetByID(ctx context.Context, id uint64) (*model.Ride, error)
	ListByDriver(ctx context.Context, driverID uint64) ([]model.Ride, error)
	Cancel(ctx context.Context, rideID, driverID uint64, reason string) (*model.Ride, error)
	Search(ctx context.Context, f repository.SearchFilter, now time.Time) ([]model.Ride, error)
	PopularTrips(ctx context.Context, limit int, now time.Time) ([]repository.PopularTrip, error)
	ListDepartedActive(ctx context.Context, now time.Time) ([]uint64, error)
	Complete(ctx context.Context, rideID uint64) (bool, error)
	ApplyTransition(ctx context.Context, t repository.Transition) (*model.Ride, *model.Booking, error)
	DeclinePendingForRide(ctx context.Context, rideID uint64) ([]uint64, error)
}

// BookingStore is the read surface for booking rows.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListForRide(ctx context.Context, rideID uint64, pendingOnly bool) ([]repository.BookingWithPassenger, error)
	ListForPassenger(ctx context.Context, passengerID uint64) ([]model.Booking, error)
}

// ProfileStore resolves public profile slices for ride enrichment.
type ProfileStore interface {
	PublicProfile(ctx context.Context, userID uint64) (*model.DriverProfile, error)
}

// Notification event types delivered to the sink.
const (
	EventBookingRequested = "booking-requested"
	EventBookingAccepted  = "booking-accepted"
	EventBookingDeclined  = "booking-declined"
	EventBookingCancelled = "booking-cancelled"
	EventRideUpdated      = "ride-updated"
)

// Notification is one message for the external notification sink.
type Notification struct {
	RecipientID uint64         `json:"recipient_id"`
	EventType   string         `json:"event_type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
}

// Notifier delivers notifications. Delivery is best-effort: a failure is
// logged as a consistency fault by the caller and never fails the
// transition that produced it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// JobKindCompleteRide is the delayed-job kind used for timed completion.
const JobKindCompleteRide = "ride.complete"

// JobScheduler is the delayed-job collaborator. Schedule and Cancel are
// best-effort; the lifecycle sweep guarantees eventual consistency even
// when a job is lost.
type JobScheduler interface {
	Schedule(ctx context.Context, at time.Time, kind string, rideID uint64) error
	Cancel(ctx context.Context, kind string, rideID uint64) error
}
