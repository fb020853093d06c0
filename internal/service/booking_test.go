package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

func newBookingService(m *memStore) (*BookingService, *recNotifier) {
	n := &recNotifier{}
	return NewBookingService(m, bookingReader{m}, n, testLogger()), n
}

func TestCreateBookingStartsPendingAndNotifiesDriver(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 3, time.Now().Add(24*time.Hour))
	svc, n := newBookingService(m)

	b, err := svc.Create(context.Background(), rd.ID, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != model.BookingStatusPending {
		t.Fatalf("expected PENDING, got %s", b.Status)
	}
	if b.SeatsBooked != 1 {
		t.Fatalf("expected 1 seat, got %d", b.SeatsBooked)
	}

	got, _ := m.GetByID(context.Background(), rd.ID)
	if got.RemainingSeats() != 3 {
		t.Fatalf("pending booking must not consume capacity, remaining=%d", got.RemainingSeats())
	}
	if len(n.sent) != 1 || n.sent[0].RecipientID != 1 || n.sent[0].EventType != EventBookingRequested {
		t.Fatalf("expected one booking-requested notification to driver, got %+v", n.sent)
	}
}

func TestCreateBookingRejectsDriverAndDuplicates(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 3, time.Now().Add(24*time.Hour))
	svc, _ := newBookingService(m)
	ctx := context.Background()

	if _, err := svc.Create(ctx, rd.ID, 1); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("driver self-booking: expected ErrForbidden, got %v", err)
	}

	if _, err := svc.Create(ctx, rd.ID, 2); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := svc.Create(ctx, rd.ID, 2); !errors.Is(err, repository.ErrDuplicateMembership) {
		t.Fatalf("second booking: expected ErrDuplicateMembership, got %v", err)
	}
}

func TestCreateBookingRejectsDepartedRide(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 3, time.Now().Add(-time.Hour))
	svc, _ := newBookingService(m)

	if _, err := svc.Create(context.Background(), rd.ID, 2); !errors.Is(err, repository.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestAcceptEnforcesCapacityAcrossPendingRequests(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 1, time.Now().Add(24*time.Hour))
	svc, n := newBookingService(m)
	ctx := context.Background()

	b2, err := svc.Create(ctx, rd.ID, 2)
	if err != nil {
		t.Fatalf("booking for user 2: %v", err)
	}
	b3, err := svc.Create(ctx, rd.ID, 3)
	if err != nil {
		t.Fatalf("booking for user 3: %v", err)
	}

	if _, err := svc.Accept(ctx, b2.ID, 1); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := svc.Accept(ctx, b3.ID, 1); !errors.Is(err, repository.ErrCapacityExceeded) {
		t.Fatalf("second accept on full ride: expected ErrCapacityExceeded, got %v", err)
	}

	got, _ := m.GetByID(ctx, rd.ID)
	if got.RemainingSeats() != 0 {
		t.Fatalf("remaining=%d, want 0", got.RemainingSeats())
	}
	if e := got.Passenger(3); e == nil || e.Status != model.PassengerStatusPending {
		t.Fatalf("user 3 must stay PENDING after refused accept, got %+v", e)
	}
	if n.countType(EventBookingAccepted) != 1 {
		t.Fatalf("expected exactly one accepted notification")
	}
}

func TestAcceptAndDeclineAreDriverOnly(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 2, time.Now().Add(24*time.Hour))
	svc, _ := newBookingService(m)
	ctx := context.Background()

	b, _ := svc.Create(ctx, rd.ID, 2)
	if _, err := svc.Accept(ctx, b.ID, 2); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("passenger accepting own booking: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Decline(ctx, b.ID, 99); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("stranger declining: expected ErrForbidden, got %v", err)
	}
}

func TestAcceptRequiresPendingState(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 2, time.Now().Add(24*time.Hour))
	svc, _ := newBookingService(m)
	ctx := context.Background()

	b, _ := svc.Create(ctx, rd.ID, 2)
	if _, err := svc.Decline(ctx, b.ID, 1); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := svc.Accept(ctx, b.ID, 1); !errors.Is(err, repository.ErrInvalidState) {
		t.Fatalf("accept after decline: expected ErrInvalidState, got %v", err)
	}
}

func TestRebookAfterDeclineReusesRecords(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 2, time.Now().Add(24*time.Hour))
	svc, _ := newBookingService(m)
	ctx := context.Background()

	b1, _ := svc.Create(ctx, rd.ID, 2)
	if _, err := svc.Decline(ctx, b1.ID, 1); err != nil {
		t.Fatalf("decline: %v", err)
	}

	b2, err := svc.Create(ctx, rd.ID, 2)
	if err != nil {
		t.Fatalf("re-book: %v", err)
	}
	if b2.ID != b1.ID {
		t.Fatalf("re-book must reuse the booking row: got id %d, want %d", b2.ID, b1.ID)
	}
	if b2.Status != model.BookingStatusPending {
		t.Fatalf("re-booked status=%s, want PENDING", b2.Status)
	}

	got, _ := m.GetByID(ctx, rd.ID)
	if len(got.Passengers) != 1 {
		t.Fatalf("membership entries=%d, want 1 (reused, not duplicated)", len(got.Passengers))
	}
}

func TestCancelByPassengerFreesSeatAndNotifiesDriver(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 1, time.Now().Add(24*time.Hour))
	svc, n := newBookingService(m)
	ctx := context.Background()

	b, _ := svc.Create(ctx, rd.ID, 2)
	if _, err := svc.Accept(ctx, b.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, _ := m.GetByID(ctx, rd.ID)
	if got.RemainingSeats() != 0 {
		t.Fatalf("remaining=%d after accept, want 0", got.RemainingSeats())
	}

	out, err := svc.Cancel(ctx, b.ID, 2)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.Status != model.BookingStatusCancelled {
		t.Fatalf("status=%s, want CANCELLED", out.Status)
	}
	got, _ = m.GetByID(ctx, rd.ID)
	if got.RemainingSeats() != 1 {
		t.Fatalf("remaining=%d after cancel, want 1", got.RemainingSeats())
	}
	last := n.sent[len(n.sent)-1]
	if last.EventType != EventBookingCancelled || last.RecipientID != 1 {
		t.Fatalf("expected cancellation notice to driver, got %+v", last)
	}
}

func TestCancelByDriverLandsDeclined(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 2, time.Now().Add(24*time.Hour))
	svc, n := newBookingService(m)
	ctx := context.Background()

	b, _ := svc.Create(ctx, rd.ID, 2)
	out, err := svc.Cancel(ctx, b.ID, 1)
	if err != nil {
		t.Fatalf("driver cancel: %v", err)
	}
	if out.Status != model.BookingStatusDeclined {
		t.Fatalf("status=%s, want DECLINED when the driver removes", out.Status)
	}
	last := n.sent[len(n.sent)-1]
	if last.EventType != EventBookingDeclined || last.RecipientID != 2 {
		t.Fatalf("expected decline notice to passenger, got %+v", last)
	}
}

func TestCancelByStrangerForbidden(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 2, time.Now().Add(24*time.Hour))
	svc, _ := newBookingService(m)
	ctx := context.Background()

	b, _ := svc.Create(ctx, rd.ID, 2)
	if _, err := svc.Cancel(ctx, b.ID, 42); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 2, time.Now().Add(24*time.Hour))
	n := &recNotifier{fail: errors.New("broker down")}
	svc := NewBookingService(m, bookingReader{m}, n, testLogger())

	b, err := svc.Create(context.Background(), rd.ID, 2)
	if err != nil {
		t.Fatalf("create with failing notifier: %v", err)
	}
	if b.Status != model.BookingStatusPending {
		t.Fatalf("status=%s, want PENDING", b.Status)
	}
}

func TestListForRideIsDriverOnly(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 2, time.Now().Add(24*time.Hour))
	svc, _ := newBookingService(m)
	ctx := context.Background()

	b, _ := svc.Create(ctx, rd.ID, 2)
	if _, err := svc.Accept(ctx, b.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, _ = svc.Create(ctx, rd.ID, 3)

	if _, err := svc.ListForRide(ctx, rd.ID, 2, false); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("passenger listing ride bookings: expected ErrForbidden, got %v", err)
	}
	all, err := svc.ListForRide(ctx, rd.ID, 1, false)
	if err != nil {
		t.Fatalf("driver listing: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("bookings=%d, want 2", len(all))
	}
	if all[0].PassengerID != 3 || all[1].PassengerID != 2 {
		t.Fatalf("expected newest booking first, got passengers %d,%d", all[0].PassengerID, all[1].PassengerID)
	}
	pending, err := svc.ListForRide(ctx, rd.ID, 1, true)
	if err != nil {
		t.Fatalf("pending listing: %v", err)
	}
	if len(pending) != 1 || pending[0].PassengerID != 3 {
		t.Fatalf("pending filter wrong: %+v", pending)
	}
}

func TestListForPassengerActiveFilter(t *testing.T) {
	m := newMemStore()
	first := seedRide(m, 1, 3, time.Now().Add(24*time.Hour))
	second := seedRide(m, 4, 3, time.Now().Add(48*time.Hour))
	svc, _ := newBookingService(m)
	ctx := context.Background()

	declined, _ := svc.Create(ctx, first.ID, 2)
	if _, err := svc.Decline(ctx, declined.ID, 1); err != nil {
		t.Fatalf("decline: %v", err)
	}
	kept, _ := svc.Create(ctx, second.ID, 2)

	all, err := svc.ListForPassenger(ctx, 2, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != kept.ID {
		t.Fatalf("expected full history newest first, got %+v", all)
	}
	active, err := svc.ListForPassenger(ctx, 2, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != kept.ID || !active[0].Active() {
		t.Fatalf("active filter wrong: %+v", active)
	}
}
