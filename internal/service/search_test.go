package service

import (
	"context"
	"testing"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

func newSearchService(m *memStore) *SearchService {
	return NewSearchService(m, m, testLogger())
}

func confirmPassenger(t *testing.T, m *memStore, rideID, userID uint64) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := m.ApplyTransition(ctx, repository.Transition{
		RideID: rideID, PassengerID: userID, Seats: 1,
		To: model.PassengerStatusPending, RequireBookable: true, CheckSeats: true,
	}); err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	if _, _, err := m.ApplyTransition(ctx, repository.Transition{
		RideID: rideID, PassengerID: userID,
		To: model.PassengerStatusConfirmed, From: []string{model.PassengerStatusPending},
		RequireBookable: true, CheckSeats: true,
	}); err != nil {
		t.Fatalf("seed confirm: %v", err)
	}
}

func TestSearchMinSeatsFiltersOnRemainingSeats(t *testing.T) {
	m := newMemStore()
	dep := time.Now().Add(24 * time.Hour)
	full := seedRide(m, 1, 2, dep) // will have 1 seat left
	open := seedRide(m, 2, 3, dep) // untouched, 3 left
	confirmPassenger(t, m, full.ID, 10)

	lat, lng := 37.98, 23.72
	svc := newSearchService(m)
	res, err := svc.Search(context.Background(), SearchQuery{
		Filter:   repository.SearchFilter{OriginLat: &lat, OriginLng: &lng},
		MinSeats: 2,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 1 || len(res.Items) != 1 {
		t.Fatalf("total=%d items=%d, want 1 ride to survive minSeats=2", res.Total, len(res.Items))
	}
	if res.Items[0].ID != open.ID {
		t.Fatalf("wrong ride survived: %d", res.Items[0].ID)
	}
	if res.Items[0].DistanceKm == nil {
		t.Fatal("geo search must report distance")
	}
}

func TestSearchComputesSeatCountsPerRow(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 4, time.Now().Add(24*time.Hour))
	confirmPassenger(t, m, rd.ID, 10)
	confirmPassenger(t, m, rd.ID, 11)

	svc := newSearchService(m)
	res, err := svc.Search(context.Background(), SearchQuery{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items=%d, want 1", len(res.Items))
	}
	it := res.Items[0]
	if it.BookedSeats != 2 || it.RemainingSeats != 2 {
		t.Fatalf("booked=%d remaining=%d, want 2/2", it.BookedSeats, it.RemainingSeats)
	}
	if it.Vehicle.Plate != "" {
		t.Fatal("search rows must not expose the license plate")
	}
}

func TestSearchSortByPriceDesc(t *testing.T) {
	m := newMemStore()
	dep := time.Now().Add(24 * time.Hour)
	cheap := seedRide(m, 1, 3, dep)
	m.rides[cheap.ID].PriceCents = 1000
	dear := seedRide(m, 2, 3, dep)
	m.rides[dear.ID].PriceCents = 9000

	svc := newSearchService(m)
	res, err := svc.Search(context.Background(), SearchQuery{SortBy: SortByPrice, SortOrder: "desc"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Items) != 2 || res.Items[0].ID != dear.ID {
		t.Fatalf("expected expensive ride first, got %+v", res.Items)
	}
}

func TestSearchDistanceSortWithoutOriginFallsBackToDeparture(t *testing.T) {
	m := newMemStore()
	later := seedRide(m, 1, 3, time.Now().Add(48*time.Hour))
	sooner := seedRide(m, 2, 3, time.Now().Add(24*time.Hour))

	svc := newSearchService(m)
	res, err := svc.Search(context.Background(), SearchQuery{SortBy: SortByDistance})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Items) != 2 || res.Items[0].ID != sooner.ID || res.Items[1].ID != later.ID {
		t.Fatalf("expected departure order %d,%d, got %+v", sooner.ID, later.ID, res.Items)
	}
}

func TestSearchPagination(t *testing.T) {
	m := newMemStore()
	base := time.Now().Add(24 * time.Hour)
	for i := 0; i < 5; i++ {
		seedRide(m, uint64(i+1), 3, base.Add(time.Duration(i)*time.Hour))
	}

	svc := newSearchService(m)
	res, err := svc.Search(context.Background(), SearchQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 5 || res.Pages != 3 || res.Count != 2 || res.Page != 2 {
		t.Fatalf("pagination meta wrong: %+v", res)
	}

	past, err := svc.Search(context.Background(), SearchQuery{Page: 9, Limit: 2})
	if err != nil {
		t.Fatalf("search past end: %v", err)
	}
	if past.Count != 0 || past.Total != 5 {
		t.Fatalf("page past end must be empty with intact totals: %+v", past)
	}
}

func TestSearchJoinsDriverSummaryProfile(t *testing.T) {
	m := newMemStore()
	seedRide(m, 1, 3, time.Now().Add(24*time.Hour))
	avatar := "https://cdn.example/avatars/1.png"
	m.profiles[1] = &model.DriverProfile{UserID: 1, FirstName: "Maria", LastName: "P", Phone: "555", AvatarURL: &avatar, Rating: 4.7}

	svc := newSearchService(m)
	res, err := svc.Search(context.Background(), SearchQuery{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	d := res.Items[0].Driver
	if d == nil || d.Rating != 4.7 || d.AvatarURL == nil {
		t.Fatalf("driver summary missing: %+v", d)
	}
	if d.FirstName != "" || d.Phone != "" {
		t.Fatalf("search rows must carry avatar and rating only, got %+v", d)
	}
}

func TestGetByIDAppliesVisibility(t *testing.T) {
	m := newMemStore()
	rd := seedRide(m, 1, 3, time.Now().Add(24*time.Hour))
	confirmPassenger(t, m, rd.ID, 2)
	m.profiles[1] = &model.DriverProfile{UserID: 1, FirstName: "Maria", Phone: "555", Rating: 4.7}
	svc := newSearchService(m)
	ctx := context.Background()

	drv, err := svc.GetByID(ctx, rd.ID, 1)
	if err != nil {
		t.Fatalf("driver view: %v", err)
	}
	if len(drv.Passengers) != 1 || drv.Vehicle.Plate == "" {
		t.Fatalf("driver view must include passengers and plate: %+v", drv)
	}

	pas, err := svc.GetByID(ctx, rd.ID, 2)
	if err != nil {
		t.Fatalf("passenger view: %v", err)
	}
	if pas.Passengers != nil || pas.Vehicle.Plate != "" {
		t.Fatalf("passenger view must hide list and plate: %+v", pas)
	}
	if pas.Driver == nil || pas.Driver.Phone != "555" {
		t.Fatalf("passenger view must include driver contact: %+v", pas.Driver)
	}

	pub, err := svc.GetByID(ctx, rd.ID, 0)
	if err != nil {
		t.Fatalf("public view: %v", err)
	}
	if pub.Passengers != nil || pub.Vehicle.Plate != "" {
		t.Fatalf("public view must hide list and plate: %+v", pub)
	}
	if pub.Driver == nil || pub.Driver.Phone != "" {
		t.Fatalf("public view must strip driver contact: %+v", pub.Driver)
	}
	if pub.RemainingSeats != 2 {
		t.Fatalf("remaining=%d, want 2", pub.RemainingSeats)
	}
}

func TestPopularTripsClampsLimit(t *testing.T) {
	m := newMemStore()
	seedRide(m, 1, 3, time.Now().Add(24*time.Hour))
	svc := newSearchService(m)

	trips, err := svc.PopularTrips(context.Background(), 500)
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(trips) != 1 {
		t.Fatalf("trips=%d, want 1", len(trips))
	}
	if trips[0].OriginCity != "Athens" || trips[0].Count != 1 {
		t.Fatalf("unexpected aggregate: %+v", trips[0])
	}
}
