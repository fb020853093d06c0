package model

import (
	"errors"
	"strings"
	"time"
)

// Ride statuses. A ride starts ACTIVE and moves exactly once to either
// COMPLETED or CANCELLED; there is no transition out of a terminal status.
const (
	RideStatusActive    = "ACTIVE"
	RideStatusCompleted = "COMPLETED"
	RideStatusCancelled = "CANCELLED"
)

// Passenger membership statuses. They mirror the booking statuses so the
// embedded entry on the ride and the standalone booking row always carry
// the same value for the same (ride, passenger) pair.
const (
	PassengerStatusPending   = "PENDING"
	PassengerStatusConfirmed = "CONFIRMED"
	PassengerStatusDeclined  = "DECLINED"
	PassengerStatusCancelled = "CANCELLED"
)

// Seat and price bounds enforced at ride creation and update.
const (
	MinRideSeats  = 1
	MaxRideSeats  = 8
	MaxPriceCents = 1_000_000 // 10,000.00 in the ride currency
)

// Location is one endpoint of a ride. The city string powers fuzzy text
// search; the coordinates power radius search. Coordinates are stored in
// (lng, lat) order in the database to match the POINT column convention.
type Location struct {
	City    string  `json:"city"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Vehicle describes the car used for a ride. The license plate is only
// visible to the ride's driver; Public() strips it for everyone else.
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
	Plate string `json:"plate,omitempty"`
}

// Public returns the vehicle with the license plate removed.
func (v Vehicle) Public() Vehicle {
	v.Plate = ""
	return v
}

// PassengerEntry is the membership record embedded in a ride: one entry per
// user who has ever attempted a booking on the ride. Entries are reused and
// overwritten on re-booking, never duplicated, so len(Passengers) is bounded
// by the number of distinct users who ever touched the ride.
//
// Fields:
//  UserID      – the passenger.
//  SeatsBooked – seats requested by this passenger (currently always 1).
//  Status      – PENDING, CONFIRMED, DECLINED or CANCELLED.
//  UpdatedAt   – last transition time.
type PassengerEntry struct {
	UserID      uint64    `json:"user_id"`
	SeatsBooked int       `json:"seats_booked"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ride represents a driver-offered trip as stored in the `rides` table,
// with the membership list from `ride_passengers` attached.
//
// AvailableSeats is the total capacity, not the remaining count; remaining
// seats are always derived via RemainingSeats and never stored.
type Ride struct {
	ID                 uint64           `json:"id"`
	DriverID           uint64           `json:"driver_id"`
	Origin             Location         `json:"origin"`
	Destination        Location         `json:"destination"`
	DepartureTime      time.Time        `json:"departure_time"`
	AvailableSeats     int              `json:"available_seats"`
	PriceCents         uint32           `json:"price_cents"`
	Vehicle            Vehicle          `json:"vehicle"`
	SmokingAllowed     bool             `json:"smoking_allowed"`
	PetsAllowed        bool             `json:"pets_allowed"`
	AdditionalInfo     string           `json:"additional_info,omitempty"`
	Status             string           `json:"status"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	Passengers         []PassengerEntry `json:"passengers,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// BookedSeats sums seats held by CONFIRMED memberships. This is the single
// seat-accounting implementation; search, booking and lifecycle code must
// all derive occupancy through it rather than keeping their own counters.
func (r *Ride) BookedSeats() int {
	total := 0
	for _, p := range r.Passengers {
		if p.Status == PassengerStatusConfirmed {
			total += p.SeatsBooked
		}
	}
	return total
}

// RemainingSeats derives free capacity from the membership list. The core
// invariant of the whole engine is that this never goes negative; any
// transition that would make it negative must be refused at write time.
func (r *Ride) RemainingSeats() int {
	return r.AvailableSeats - r.BookedSeats()
}

// IsBookable reports whether the ride can still take booking activity:
// it must be ACTIVE and its departure must still be in the future.
func (r *Ride) IsBookable(now time.Time) bool {
	return r.Status == RideStatusActive && r.DepartureTime.After(now)
}

// Passenger returns the membership entry for the given user, or nil when
// the user has never attempted a booking on this ride.
func (r *Ride) Passenger(userID uint64) *PassengerEntry {
	for i := range r.Passengers {
		if r.Passengers[i].UserID == userID {
			return &r.Passengers[i]
		}
	}
	return nil
}

// IsParty reports whether the user is the driver or holds any membership
// entry on the ride, in any status. Parties see more ride detail than the
// public (see Visibility in detail.go).
func (r *Ride) IsParty(userID uint64) bool {
	if userID == 0 {
		return false
	}
	return userID == r.DriverID || r.Passenger(userID) != nil
}

// Validation errors surfaced to the HTTP boundary on ride create/update.
var (
	ErrSameCity         = errors.New("origin and destination city must differ")
	ErrPastDeparture    = errors.New("departure time must be in the future")
	ErrSeatBounds       = errors.New("available seats must be between 1 and 8")
	ErrPriceBounds      = errors.New("price per seat exceeds the allowed maximum")
	ErrMissingCity      = errors.New("origin and destination city are required")
	ErrSeatsBelowBooked = errors.New("available seats cannot drop below already confirmed seats")
)

// Validate checks the business rules that apply when a ride is created or
// its core fields are changed. Shape validation (well-formed numbers, ISO
// timestamps) is the boundary's job; only rules live here.
func (r *Ride) Validate(now time.Time) error {
	origin := strings.TrimSpace(r.Origin.City)
	dest := strings.TrimSpace(r.Destination.City)
	if origin == "" || dest == "" {
		return ErrMissingCity
	}
	if strings.EqualFold(origin, dest) {
		return ErrSameCity
	}
	if !r.DepartureTime.After(now) {
		return ErrPastDeparture
	}
	if r.AvailableSeats < MinRideSeats || r.AvailableSeats > MaxRideSeats {
		return ErrSeatBounds
	}
	if r.PriceCents > MaxPriceCents {
		return ErrPriceBounds
	}
	if r.AvailableSeats < r.BookedSeats() {
		return ErrSeatsBelowBooked
	}
	return nil
}
