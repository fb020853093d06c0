package repository

import (
	"context"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
)

// Transition describes one booking state change for a (ride, passenger)
// pair. The orchestrator decides which transition applies; ApplyTransition
// makes it atomic and re-checks the guards that are racy outside a lock:
// ride bookability and seat capacity.
type Transition struct {
	RideID          uint64
	PassengerID     uint64
	Seats           int      // seats requested; only meaningful on create
	To              string   // target membership/booking status
	From            []string // allowed current statuses; nil means create semantics
	RequireBookable bool     // ride must be ACTIVE with future departure
	RequireActive   bool     // ride must be ACTIVE (departure may have passed)
	CheckSeats      bool     // re-derive remaining seats under lock, abort if negative
}

func statusIn(status string, set []string) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// ApplyTransition upserts the passenger's membership entry and booking row
// to t.To inside one transaction, with the ride row locked FOR UPDATE.
// The seat-capacity invariant is enforced here, at write time, by
// re-deriving the confirmed seat sum from the just-updated membership
// list; a value read by the caller earlier is never trusted. On success
// the updated ride (memberships included) and booking are returned.
//
// Create semantics (t.From == nil): a membership entry in PENDING or
// CONFIRMED state reports ErrDuplicateMembership; a DECLINED or CANCELLED
// entry is reused and moved back to PENDING together with its booking
// row, so no duplicates accumulate on re-booking.
func (r *RideRepo) ApplyTransition(ctx context.Context, t Transition) (*model.Ride, *model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rd, err := r.getForUpdateTx(ctx, tx, t.RideID)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	if t.RequireBookable && !rd.IsBookable(now) {
		return nil, nil, ErrInvalidState
	}
	if t.RequireActive && rd.Status != model.RideStatusActive {
		return nil, nil, ErrInvalidState
	}

	entry := rd.Passenger(t.PassengerID)
	creating := t.From == nil
	if creating {
		if entry != nil && (entry.Status == model.PassengerStatusPending || entry.Status == model.PassengerStatusConfirmed) {
			return nil, nil, ErrDuplicateMembership
		}
	} else {
		if entry == nil || !statusIn(entry.Status, t.From) {
			return nil, nil, ErrInvalidState
		}
	}

	seats := t.Seats
	if entry != nil && !creating {
		seats = entry.SeatsBooked
	}

	// Capacity guard against the authoritative membership list, with the
	// transition applied. Multiple pending requests may exist for more
	// seats than remain; only confirmation consumes capacity.
	if t.CheckSeats {
		booked := 0
		for _, p := range rd.Passengers {
			if p.UserID == t.PassengerID {
				continue
			}
			if p.Status == model.PassengerStatusConfirmed {
				booked += p.SeatsBooked
			}
		}
		if t.To == model.PassengerStatusConfirmed {
			booked += seats
		}
		if booked > rd.AvailableSeats || (creating && rd.AvailableSeats-booked < seats) {
			return nil, nil, ErrCapacityExceeded
		}
	}

	// Upsert the membership entry. The unique key on (ride_id, user_id)
	// turns a re-book into an overwrite of the existing row.
	const upsertMembership = `INSERT INTO ride_passengers (ride_id, user_id, seats_booked, status)
		VALUES (?,?,?,?)
		ON DUPLICATE KEY UPDATE seats_booked=VALUES(seats_booked), status=VALUES(status)`
	if _, err := tx.ExecContext(ctx, upsertMembership, t.RideID, t.PassengerID, seats, t.To); err != nil {
		return nil, nil, err
	}

	// Mirror the same status onto the booking row. Same key, same upsert
	// discipline: one booking per (ride, passenger), reused forever.
	const upsertBooking = `INSERT INTO bookings (ride_id, passenger_id, driver_id, seats_booked, status)
		VALUES (?,?,?,?,?)
		ON DUPLICATE KEY UPDATE seats_booked=VALUES(seats_booked), status=VALUES(status)`
	if _, err := tx.ExecContext(ctx, upsertBooking, t.RideID, t.PassengerID, rd.DriverID, seats, t.To); err != nil {
		return nil, nil, err
	}

	var b model.Booking
	const selBooking = `SELECT id, ride_id, passenger_id, driver_id, seats_booked, status, created_at, updated_at
		FROM bookings WHERE ride_id = ? AND passenger_id = ?`
	if err := tx.QueryRowContext(ctx, selBooking, t.RideID, t.PassengerID).Scan(
		&b.ID, &b.RideID, &b.PassengerID, &b.DriverID, &b.SeatsBooked, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true

	// Reflect the transition on the in-memory ride before returning it.
	if e := rd.Passenger(t.PassengerID); e != nil {
		e.Status = t.To
		e.SeatsBooked = seats
		e.UpdatedAt = now
	} else {
		rd.Passengers = append(rd.Passengers, model.PassengerEntry{
			UserID: t.PassengerID, SeatsBooked: seats, Status: t.To, UpdatedAt: now,
		})
	}
	return rd, &b, nil
}

// DeclinePendingForRide force-declines every still-PENDING membership and
// booking on a ride. Used by the completion path: a ride that has departed
// can no longer accept requests. Returns the passenger ids that were
// declined so the caller can notify them; an empty slice on a re-run makes
// the sweep idempotent with no duplicate notifications.
func (r *RideRepo) DeclinePendingForRide(ctx context.Context, rideID uint64) ([]uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT user_id FROM ride_passengers WHERE ride_id = ? AND status = ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, sel, rideID, model.PassengerStatusPending)
	if err != nil {
		return nil, err
	}
	var declined []uint64
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return nil, err
		}
		declined = append(declined, uid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(declined) == 0 {
		return nil, nil
	}

	const updMembers = `UPDATE ride_passengers SET status=? WHERE ride_id=? AND status=?`
	if _, err := tx.ExecContext(ctx, updMembers, model.PassengerStatusDeclined, rideID, model.PassengerStatusPending); err != nil {
		return nil, err
	}
	const updBookings = `UPDATE bookings SET status=? WHERE ride_id=? AND status=?`
	if _, err := tx.ExecContext(ctx, updBookings, model.BookingStatusDeclined, rideID, model.BookingStatusPending); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return declined, nil
}
