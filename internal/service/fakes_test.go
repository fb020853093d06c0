package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

// memStore is an in-memory RideStore + BookingStore + ProfileStore with
// the same transition semantics as the MySQL repositories, minus the
// locking. Tests drive the services against it.
type memStore struct {
	rides       map[uint64]*model.Ride
	bookings    map[uint64]*model.Booking
	profiles    map[uint64]*model.DriverProfile
	nextRide    uint64
	nextBooking uint64
}

func newMemStore() *memStore {
	return &memStore{
		rides:    map[uint64]*model.Ride{},
		bookings: map[uint64]*model.Booking{},
		profiles: map[uint64]*model.DriverProfile{},
	}
}

func (m *memStore) bookingFor(rideID, passengerID uint64) *model.Booking {
	for _, b := range m.bookings {
		if b.RideID == rideID && b.PassengerID == passengerID {
			return b
		}
	}
	return nil
}

func copyRide(rd *model.Ride) *model.Ride {
	cp := *rd
	cp.Passengers = append([]model.PassengerEntry(nil), rd.Passengers...)
	return &cp
}

func (m *memStore) Create(_ context.Context, rd *model.Ride) error {
	m.nextRide++
	rd.ID = m.nextRide
	rd.Status = model.RideStatusActive
	rd.CreatedAt = time.Now()
	rd.UpdatedAt = rd.CreatedAt
	m.rides[rd.ID] = copyRide(rd)
	return nil
}

func (m *memStore) Update(_ context.Context, rd *model.Ride) error {
	cur, ok := m.rides[rd.ID]
	if !ok {
		return repository.ErrRideNotFound
	}
	if cur.Status != model.RideStatusActive {
		return repository.ErrInvalidState
	}
	if rd.AvailableSeats < cur.BookedSeats() {
		return model.ErrSeatsBelowBooked
	}
	keep := cur.Passengers
	m.rides[rd.ID] = copyRide(rd)
	m.rides[rd.ID].Passengers = keep
	rd.Passengers = keep
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Ride, error) {
	rd, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrRideNotFound
	}
	return copyRide(rd), nil
}

func (m *memStore) ListByDriver(_ context.Context, driverID uint64) ([]model.Ride, error) {
	var out []model.Ride
	for _, rd := range m.rides {
		if rd.DriverID == driverID {
			out = append(out, *copyRide(rd))
		}
	}
	return out, nil
}

func (m *memStore) Cancel(_ context.Context, rideID, driverID uint64, reason string) (*model.Ride, error) {
	rd, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrRideNotFound
	}
	if rd.DriverID != driverID {
		return nil, repository.ErrForbidden
	}
	if rd.Status != model.RideStatusActive {
		return nil, repository.ErrInvalidState
	}
	now := time.Now()
	rd.Status = model.RideStatusCancelled
	if reason != "" {
		rd.CancellationReason = &reason
	}
	rd.CancelledAt = &now
	return copyRide(rd), nil
}

// Search applies only the base predicate (ACTIVE, future departure); the
// remaining storable filters are SQL concerns exercised elsewhere.
func (m *memStore) Search(_ context.Context, _ repository.SearchFilter, now time.Time) ([]model.Ride, error) {
	var out []model.Ride
	for _, rd := range m.rides {
		if rd.Status == model.RideStatusActive && !rd.DepartureTime.Before(now) {
			out = append(out, *copyRide(rd))
		}
	}
	return out, nil
}

func (m *memStore) PopularTrips(_ context.Context, limit int, now time.Time) ([]repository.PopularTrip, error) {
	counts := map[[2]string]*repository.PopularTrip{}
	for _, rd := range m.rides {
		if rd.Status != model.RideStatusActive || rd.DepartureTime.Before(now) {
			continue
		}
		key := [2]string{rd.Origin.City, rd.Destination.City}
		pt, ok := counts[key]
		if !ok {
			pt = &repository.PopularTrip{OriginCity: key[0], DestinationCity: key[1], MinPriceCents: rd.PriceCents}
			counts[key] = pt
		}
		pt.Count++
		if rd.PriceCents < pt.MinPriceCents {
			pt.MinPriceCents = rd.PriceCents
		}
	}
	var out []repository.PopularTrip
	for _, pt := range counts {
		out = append(out, *pt)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListDepartedActive(_ context.Context, now time.Time) ([]uint64, error) {
	var ids []uint64
	for id, rd := range m.rides {
		if rd.Status == model.RideStatusActive && !rd.DepartureTime.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) Complete(_ context.Context, rideID uint64) (bool, error) {
	rd, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrRideNotFound
	}
	if rd.Status != model.RideStatusActive {
		return false, nil
	}
	rd.Status = model.RideStatusCompleted
	return true, nil
}

func (m *memStore) ApplyTransition(_ context.Context, t repository.Transition) (*model.Ride, *model.Booking, error) {
	rd, ok := m.rides[t.RideID]
	if !ok {
		return nil, nil, repository.ErrRideNotFound
	}
	now := time.Now()
	if t.RequireBookable && !rd.IsBookable(now) {
		return nil, nil, repository.ErrInvalidState
	}
	if t.RequireActive && rd.Status != model.RideStatusActive {
		return nil, nil, repository.ErrInvalidState
	}

	entry := rd.Passenger(t.PassengerID)
	creating := t.From == nil
	if creating {
		if entry != nil && (entry.Status == model.PassengerStatusPending || entry.Status == model.PassengerStatusConfirmed) {
			return nil, nil, repository.ErrDuplicateMembership
		}
	} else {
		if entry == nil {
			return nil, nil, repository.ErrInvalidState
		}
		allowed := false
		for _, s := range t.From {
			if entry.Status == s {
				allowed = true
			}
		}
		if !allowed {
			return nil, nil, repository.ErrInvalidState
		}
	}

	seats := t.Seats
	if entry != nil && !creating {
		seats = entry.SeatsBooked
	}

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
			return nil, nil, repository.ErrCapacityExceeded
		}
	}

	if entry != nil {
		entry.Status = t.To
		entry.SeatsBooked = seats
		entry.UpdatedAt = now
	} else {
		rd.Passengers = append(rd.Passengers, model.PassengerEntry{
			UserID: t.PassengerID, SeatsBooked: seats, Status: t.To, UpdatedAt: now,
		})
	}

	b := m.bookingFor(t.RideID, t.PassengerID)
	if b == nil {
		m.nextBooking++
		b = &model.Booking{
			ID: m.nextBooking, RideID: t.RideID, PassengerID: t.PassengerID,
			DriverID: rd.DriverID, CreatedAt: now,
		}
		m.bookings[b.ID] = b
	}
	b.SeatsBooked = seats
	b.Status = t.To
	b.UpdatedAt = now

	out := *b
	return copyRide(rd), &out, nil
}

func (m *memStore) DeclinePendingForRide(_ context.Context, rideID uint64) ([]uint64, error) {
	rd, ok := m.rides[rideID]
	if !ok {
		return nil, repository.ErrRideNotFound
	}
	var declined []uint64
	for i := range rd.Passengers {
		if rd.Passengers[i].Status == model.PassengerStatusPending {
			rd.Passengers[i].Status = model.PassengerStatusDeclined
			declined = append(declined, rd.Passengers[i].UserID)
		}
	}
	for _, b := range m.bookings {
		if b.RideID == rideID && b.Status == model.BookingStatusPending {
			b.Status = model.BookingStatusDeclined
		}
	}
	return declined, nil
}

// BookingStore.

func (m *memStore) GetBookingByID(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (m *memStore) ListForRide(_ context.Context, rideID uint64, pendingOnly bool) ([]repository.BookingWithPassenger, error) {
	var out []repository.BookingWithPassenger
	for _, b := range m.bookings {
		if b.RideID != rideID {
			continue
		}
		if pendingOnly && b.Status != model.BookingStatusPending {
			continue
		}
		bw := repository.BookingWithPassenger{Booking: *b}
		if p := m.profiles[b.PassengerID]; p != nil {
			bw.Passenger = *p
		}
		out = append(out, bw)
	}
	// Newest first, matching the SQL repository's ORDER BY created_at DESC.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memStore) ListForPassenger(_ context.Context, passengerID uint64) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range m.bookings {
		if b.PassengerID == passengerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ProfileStore.

func (m *memStore) PublicProfile(_ context.Context, userID uint64) (*model.DriverProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

// bookingReader adapts memStore to the BookingStore interface, whose
// GetByID name collides with RideStore's on a single struct.
type bookingReader struct{ m *memStore }

func (r bookingReader) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.m.GetBookingByID(ctx, id)
}
func (r bookingReader) ListForRide(ctx context.Context, rideID uint64, pendingOnly bool) ([]repository.BookingWithPassenger, error) {
	return r.m.ListForRide(ctx, rideID, pendingOnly)
}
func (r bookingReader) ListForPassenger(ctx context.Context, passengerID uint64) ([]model.Booking, error) {
	return r.m.ListForPassenger(ctx, passengerID)
}

// recNotifier records notifications; set fail to simulate a broker outage.
type recNotifier struct {
	sent []Notification
	fail error
}

func (n *recNotifier) Notify(_ context.Context, msg Notification) error {
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recNotifier) countType(eventType string) int {
	c := 0
	for _, msg := range n.sent {
		if msg.EventType == eventType {
			c++
		}
	}
	return c
}

type schedCall struct {
	kind   string
	rideID uint64
	at     time.Time
}

// recScheduler records Schedule and Cancel calls.
type recScheduler struct {
	scheduled []schedCall
	cancelled []schedCall
}

func (s *recScheduler) Schedule(_ context.Context, at time.Time, kind string, rideID uint64) error {
	s.scheduled = append(s.scheduled, schedCall{kind: kind, rideID: rideID, at: at})
	return nil
}

func (s *recScheduler) Cancel(_ context.Context, kind string, rideID uint64) error {
	s.cancelled = append(s.cancelled, schedCall{kind: kind, rideID: rideID})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedRide puts an ACTIVE ride into the store and returns it.
func seedRide(m *memStore, driverID uint64, seats int, departure time.Time) *model.Ride {
	rd := &model.Ride{
		DriverID:       driverID,
		Origin:         model.Location{City: "Athens", Lat: 37.9838, Lng: 23.7275},
		Destination:    model.Location{City: "Thessaloniki", Lat: 40.6401, Lng: 22.9444},
		DepartureTime:  departure,
		AvailableSeats: seats,
		PriceCents:     2500,
		Vehicle:        model.Vehicle{Make: "Toyota", Model: "Yaris", Color: "blue", Plate: "ABC-1234"},
	}
	_ = m.Create(context.Background(), rd)
	return rd
}
