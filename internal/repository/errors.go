// Package repository defines error types that are reused across multiple
// repositories and by the service layer on top of them. These sentinel
// values let higher layers distinguish business-rule rejections from each
// other and from store-connectivity failures. Every value here is
// recoverable at the request boundary; none of them should crash the
// process.
package repository

import "errors"

// ErrRideNotFound is returned when a ride id does not resolve.
var ErrRideNotFound = errors.New("ride not found")

// ErrBookingNotFound is returned when a booking id does not resolve, or
// when no booking exists for a (ride, passenger) pair that requires one.
var ErrBookingNotFound = errors.New("booking not found")

// ErrForbidden is returned when the caller lacks the role an operation
// requires: not the ride's driver, or not a party to the booking.
// Handlers translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState is returned when the entity is not in a state compatible
// with the requested transition: ride not active or past departure, or a
// booking not PENDING where PENDING is required. Handlers translate this
// into an HTTP 409 response.
var ErrInvalidState = errors.New("invalid state for this operation")

// ErrCapacityExceeded is returned when a transition would drive a ride's
// remaining seats negative. The check runs inside the store write, after
// re-deriving the seat sum from the membership rows, so racing accepts
// cannot oversell.
var ErrCapacityExceeded = errors.New("not enough remaining seats")

// ErrDuplicateMembership is returned when the caller already holds a
// PENDING or CONFIRMED booking on the ride. Callers in DECLINED or
// CANCELLED state may re-book, which reuses their existing rows.
var ErrDuplicateMembership = errors.New("an active booking already exists for this ride")
