package model

import "time"

// Booking statuses. Kept equal to the matching PassengerEntry status for
// the same (ride, passenger) pair at every transition.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusDeclined  = "DECLINED"
	BookingStatusCancelled = "CANCELLED"
)

// Booking is a passenger's request to occupy seats on a ride, as stored in
// the `bookings` table. DriverID and RideID are copied from the ride at
// booking time for passenger-centric queries; if they ever diverge from the
// ride's own fields that is a data-integrity bug, not a business state.
//
// Exactly one booking row exists per (ride, passenger) pair: re-booking
// after a decline or cancellation reuses the row, moving it back to
// PENDING. Bookings are never hard-deleted; history is retained.
type Booking struct {
	ID          uint64    `json:"id"`
	RideID      uint64    `json:"ride_id"`
	PassengerID uint64    `json:"passenger_id"`
	DriverID    uint64    `json:"driver_id"`
	SeatsBooked int       `json:"seats_booked"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Active reports whether the booking currently occupies the passenger's
// one-active-booking-per-ride slot. DECLINED and CANCELLED bookings leave
// the slot free for a new attempt.
func (b *Booking) Active() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}
