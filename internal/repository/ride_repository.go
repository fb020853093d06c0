package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
)

// RideRepo provides persistence for rides, their embedded passenger
// membership rows and the booking rows kept in lockstep with them.
// Membership lives in `ride_passengers` (one row per user who has ever
// attempted a booking on the ride, unique on (ride_id, user_id)) and the
// passenger-facing history lives in `bookings` (unique on the same pair).
// Every state transition touches both tables inside one transaction, with
// the ride row locked FOR UPDATE so seat arithmetic is serialized per
// ride. All timestamp fields are stored in UTC.
type RideRepo struct {
	db *sql.DB
}

// NewRideRepo returns a new RideRepo bound to the given database.
func NewRideRepo(db *sql.DB) *RideRepo { return &RideRepo{db: db} }

const rideColumns = `id, driver_id, origin_city, origin_address, origin_lat, origin_lng,
	dest_city, dest_address, dest_lat, dest_lng, departure_time, available_seats,
	price_cents, vehicle_make, vehicle_model, vehicle_color, vehicle_plate,
	smoking_allowed, pets_allowed, additional_info, status,
	cancellation_reason, cancelled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(sc rowScanner) (*model.Ride, error) {
	var rd model.Ride
	var originAddr, destAddr, info, reason sql.NullString
	var cancelledAt sql.NullTime
	err := sc.Scan(
		&rd.ID, &rd.DriverID, &rd.Origin.City, &originAddr, &rd.Origin.Lat, &rd.Origin.Lng,
		&rd.Destination.City, &destAddr, &rd.Destination.Lat, &rd.Destination.Lng,
		&rd.DepartureTime, &rd.AvailableSeats,
		&rd.PriceCents, &rd.Vehicle.Make, &rd.Vehicle.Model, &rd.Vehicle.Color, &rd.Vehicle.Plate,
		&rd.SmokingAllowed, &rd.PetsAllowed, &info, &rd.Status,
		&reason, &cancelledAt, &rd.CreatedAt, &rd.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rd.Origin.Address = originAddr.String
	rd.Destination.Address = destAddr.String
	rd.AdditionalInfo = info.String
	if reason.Valid {
		s := reason.String
		rd.CancellationReason = &s
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		rd.CancelledAt = &t
	}
	return &rd, nil
}

// Create inserts a new ride and populates the generated ID and timestamps
// on the provided value. Business validation (future departure, distinct
// cities, seat and price bounds) is the caller's job.
func (r *RideRepo) Create(ctx context.Context, rd *model.Ride) error {
	const q = `INSERT INTO rides
		(driver_id, origin_city, origin_address, origin_lat, origin_lng,
		 dest_city, dest_address, dest_lat, dest_lng, departure_time, available_seats,
		 price_cents, vehicle_make, vehicle_model, vehicle_color, vehicle_plate,
		 smoking_allowed, pets_allowed, additional_info, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		rd.DriverID, rd.Origin.City, nullStr(rd.Origin.Address), rd.Origin.Lat, rd.Origin.Lng,
		rd.Destination.City, nullStr(rd.Destination.Address), rd.Destination.Lat, rd.Destination.Lng,
		rd.DepartureTime.UTC(), rd.AvailableSeats,
		rd.PriceCents, rd.Vehicle.Make, rd.Vehicle.Model, rd.Vehicle.Color, rd.Vehicle.Plate,
		rd.SmokingAllowed, rd.PetsAllowed, nullStr(rd.AdditionalInfo), model.RideStatusActive,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rd.ID = uint64(id)
	rd.Status = model.RideStatusActive
	const sel = `SELECT created_at, updated_at FROM rides WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, rd.ID).Scan(&rd.CreatedAt, &rd.UpdatedAt)
}

// Update persists edits to a ride's core fields. Only ACTIVE rides may be
// edited; anything else reports ErrInvalidState so completed and cancelled
// rides stay immutable. The ride row is locked so the seat check runs
// against the membership rows a concurrent acceptance may just have
// committed, not against whatever snapshot the caller validated earlier.
func (r *RideRepo) Update(ctx context.Context, rd *model.Ride) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	cur, err := r.getForUpdateTx(ctx, tx, rd.ID)
	if err != nil {
		return err
	}
	if cur.Status != model.RideStatusActive {
		return ErrInvalidState
	}
	if rd.AvailableSeats < cur.BookedSeats() {
		return model.ErrSeatsBelowBooked
	}
	const q = `UPDATE rides SET
		origin_city=?, origin_address=?, origin_lat=?, origin_lng=?,
		dest_city=?, dest_address=?, dest_lat=?, dest_lng=?,
		departure_time=?, available_seats=?, price_cents=?,
		vehicle_make=?, vehicle_model=?, vehicle_color=?, vehicle_plate=?,
		smoking_allowed=?, pets_allowed=?, additional_info=?
		WHERE id=?`
	if _, err := tx.ExecContext(ctx, q,
		rd.Origin.City, nullStr(rd.Origin.Address), rd.Origin.Lat, rd.Origin.Lng,
		rd.Destination.City, nullStr(rd.Destination.Address), rd.Destination.Lat, rd.Destination.Lng,
		rd.DepartureTime.UTC(), rd.AvailableSeats, rd.PriceCents,
		rd.Vehicle.Make, rd.Vehicle.Model, rd.Vehicle.Color, rd.Vehicle.Plate,
		rd.SmokingAllowed, rd.PetsAllowed, nullStr(rd.AdditionalInfo),
		rd.ID,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	rd.Passengers = cur.Passengers
	return nil
}

// GetByID loads a ride with its full membership list. Returns
// ErrRideNotFound when the id does not resolve.
func (r *RideRepo) GetByID(ctx context.Context, id uint64) (*model.Ride, error) {
	const q = `SELECT ` + rideColumns + ` FROM rides WHERE id = ?`
	rd, err := scanRide(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	passengers, err := r.loadPassengers(ctx, r.db, []uint64{id})
	if err != nil {
		return nil, err
	}
	rd.Passengers = passengers[id]
	return rd, nil
}

// ListByDriver returns the rides posted by a driver, newest departure
// first, memberships included.
func (r *RideRepo) ListByDriver(ctx context.Context, driverID uint64) ([]model.Ride, error) {
	const q = `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = ? ORDER BY departure_time DESC`
	rows, err := r.db.QueryContext(ctx, q, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Ride, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		rd, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rd)
		ids = append(ids, rd.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachPassengers(ctx, out, ids); err != nil {
		return nil, err
	}
	return out, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadPassengers fetches membership rows for a batch of rides in a single
// query and groups them by ride id.
func (r *RideRepo) loadPassengers(ctx context.Context, q querier, rideIDs []uint64) (map[uint64][]model.PassengerEntry, error) {
	if len(rideIDs) == 0 {
		return map[uint64][]model.PassengerEntry{}, nil
	}
	placeholders := make([]string, 0, len(rideIDs))
	args := make([]any, 0, len(rideIDs))
	for _, id := range rideIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT ride_id, user_id, seats_booked, status, updated_at
		FROM ride_passengers
		WHERE ride_id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY ride_id, id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.PassengerEntry)
	for rows.Next() {
		var rideID uint64
		var e model.PassengerEntry
		if err := rows.Scan(&rideID, &e.UserID, &e.SeatsBooked, &e.Status, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out[rideID] = append(out[rideID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RideRepo) attachPassengers(ctx context.Context, rides []model.Ride, ids []uint64) error {
	byRide, err := r.loadPassengers(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for i := range rides {
		rides[i].Passengers = byRide[rides[i].ID]
	}
	return nil
}

// getForUpdateTx locks the ride row and loads its memberships inside the
// transaction. The row lock is what serializes concurrent seat math for
// one ride; readers outside the transaction are unaffected.
func (r *RideRepo) getForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Ride, error) {
	const q = `SELECT ` + rideColumns + ` FROM rides WHERE id = ? FOR UPDATE`
	rd, err := scanRide(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	passengers, err := r.loadPassengers(ctx, tx, []uint64{id})
	if err != nil {
		return nil, err
	}
	rd.Passengers = passengers[id]
	return rd, nil
}

// Cancel transitions a ride to CANCELLED on behalf of its driver. The
// status guard is checked under lock so the transition stays monotonic
// against a racing completion sweep.
func (r *RideRepo) Cancel(ctx context.Context, rideID, driverID uint64, reason string) (*model.Ride, error) {
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
	rd, err := r.getForUpdateTx(ctx, tx, rideID)
	if err != nil {
		return nil, err
	}
	if rd.DriverID != driverID {
		return nil, ErrForbidden
	}
	if rd.Status != model.RideStatusActive {
		return nil, ErrInvalidState
	}
	now := time.Now().UTC()
	const q = `UPDATE rides SET status=?, cancellation_reason=?, cancelled_at=? WHERE id=?`
	if _, err := tx.ExecContext(ctx, q, model.RideStatusCancelled, nullStr(reason), now, rideID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	rd.Status = model.RideStatusCancelled
	if reason != "" {
		rd.CancellationReason = &reason
	}
	rd.CancelledAt = &now
	return rd, nil
}

// Complete transitions a ride from ACTIVE to COMPLETED. It reports false
// without error when the ride was already terminal, which makes the
// completion sweep idempotent.
func (r *RideRepo) Complete(ctx context.Context, rideID uint64) (bool, error) {
	const q = `UPDATE rides SET status=? WHERE id=? AND status=?`
	res, err := r.db.ExecContext(ctx, q, model.RideStatusCompleted, rideID, model.RideStatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListDepartedActive returns ids of ACTIVE rides whose departure time has
// passed. The sweep uses it as the safety net for lost completion jobs.
func (r *RideRepo) ListDepartedActive(ctx context.Context, now time.Time) ([]uint64, error) {
	const q = `SELECT id FROM rides WHERE status=? AND departure_time <= ?`
	rows, err := r.db.QueryContext(ctx, q, model.RideStatusActive, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullStr(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
