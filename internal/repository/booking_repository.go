package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
)

// BookingRepo provides the read side of bookings. Writes go through
// RideRepo.ApplyTransition so the membership row and the booking row can
// never be updated separately.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, ride_id, passenger_id, driver_id, seats_booked, status, created_at, updated_at`

func scanBooking(sc rowScanner) (*model.Booking, error) {
	var b model.Booking
	err := sc.Scan(&b.ID, &b.RideID, &b.PassengerID, &b.DriverID, &b.SeatsBooked, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID resolves a booking id. Returns ErrBookingNotFound when absent.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// BookingWithPassenger is a booking joined with the passenger's public
// profile for driver-facing listings.
type BookingWithPassenger struct {
	model.Booking
	Passenger model.DriverProfile `json:"passenger"`
}

// ListForRide returns bookings on a ride joined with the passenger public
// profile, newest first. When pendingOnly is set, only PENDING bookings
// are returned. Authorization (caller must be the ride's driver) is the
// service's job.
func (r *BookingRepo) ListForRide(ctx context.Context, rideID uint64, pendingOnly bool) ([]BookingWithPassenger, error) {
	q := `SELECT b.id, b.ride_id, b.passenger_id, b.driver_id, b.seats_booked, b.status,
			b.created_at, b.updated_at,
			u.first_name, u.avatar_url, u.rating
		FROM bookings b
		LEFT JOIN users u ON u.id = b.passenger_id
		WHERE b.ride_id = ?`
	args := []any{rideID}
	if pendingOnly {
		q += ` AND b.status = ?`
		args = append(args, model.BookingStatusPending)
	}
	q += ` ORDER BY b.created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingWithPassenger, 0)
	for rows.Next() {
		var d BookingWithPassenger
		var firstName sql.NullString
		var avatar sql.NullString
		var rating sql.NullFloat64
		if err := rows.Scan(
			&d.ID, &d.RideID, &d.PassengerID, &d.DriverID, &d.SeatsBooked, &d.Status,
			&d.CreatedAt, &d.UpdatedAt,
			&firstName, &avatar, &rating,
		); err != nil {
			return nil, err
		}
		d.Passenger = model.DriverProfile{UserID: d.PassengerID, FirstName: firstName.String, Rating: rating.Float64}
		if avatar.Valid {
			a := avatar.String
			d.Passenger.AvatarURL = &a
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListForPassenger returns a passenger's booking history, newest first.
// Booking rows are authoritative for passenger-facing history, so this
// reads bookings alone without consulting ride memberships.
func (r *BookingRepo) ListForPassenger(ctx context.Context, passengerID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE passenger_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
