package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/geo"
	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/observability"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

// Search defaults and bounds. Pagination shape validation happens at the
// boundary; the clamps here are only a safety net for internal callers.
const (
	DefaultRadiusKm = 50
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPopularN = 10
	MaxPopularN     = 20
)

// Sort dimensions accepted by Search.
const (
	SortByPrice     = "price"
	SortByDeparture = "departureTime"
	SortByDistance  = "distance"
)

// SearchQuery is a full search request: the storable filter plus the
// derived-seat filter, sorting and pagination.
type SearchQuery struct {
	Filter    repository.SearchFilter
	MinSeats  int
	Page      int
	Limit     int
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// SearchResult is one page of ride summaries plus pagination metadata.
// Total counts every ride matching the full filter pipeline, including
// the derived-seat filter that the store cannot evaluate.
type SearchResult struct {
	Items []model.Summary `json:"items"`
	Page  int             `json:"page"`
	Pages int             `json:"pages"`
	Total int             `json:"total"`
	Count int             `json:"count"`
}

// SearchService executes ride searches and single-ride reads. Pure read
// path: it never mutates state.
type SearchService struct {
	Rides    RideStore
	Profiles ProfileStore
	Log      *slog.Logger
}

func NewSearchService(rides RideStore, profiles ProfileStore, log *slog.Logger) *SearchService {
	return &SearchService{Rides: rides, Profiles: profiles, Log: log}
}

// Search runs the filter pipeline: storable predicates in the store,
// then seat accounting, the min-seats filter, sorting and pagination on
// the candidate set. minSeats compares against remaining seats, which
// only exist after the membership sum, so it can never be pushed into
// the store predicate.
//
// Note: departureDate day-boundary filtering uses server-local midnight
// semantics inherited from the product. This is a known latent issue for
// cross-timezone users, flagged to product rather than silently changed.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	started := time.Now()
	defer func() {
		observability.SearchDuration.Observe(time.Since(started).Seconds())
	}()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Filter.OriginRadiusKm <= 0 {
		q.Filter.OriginRadiusKm = DefaultRadiusKm
	}
	if q.Filter.DestRadiusKm <= 0 {
		q.Filter.DestRadiusKm = DefaultRadiusKm
	}

	now := time.Now()
	candidates, err := s.Rides.Search(ctx, q.Filter, now)
	if err != nil {
		return nil, err
	}

	geoSearch := q.Filter.OriginLat != nil && q.Filter.OriginLng != nil

	type scored struct {
		ride     *model.Ride
		booked   int
		remain   int
		distance float64
	}
	matched := make([]scored, 0, len(candidates))
	for i := range candidates {
		rd := &candidates[i]
		booked := rd.BookedSeats()
		remain := rd.RemainingSeats()
		if q.MinSeats > 0 && remain < q.MinSeats {
			continue
		}
		sc := scored{ride: rd, booked: booked, remain: remain}
		if geoSearch {
			sc.distance = geo.HaversineKm(*q.Filter.OriginLat, *q.Filter.OriginLng, rd.Origin.Lat, rd.Origin.Lng)
		}
		matched = append(matched, sc)
	}

	// Distance sorting falls back to departure time when no origin
	// coordinates were given. The base order from the store is already
	// departure-ascending; SliceStable keeps it as the tie-break.
	desc := q.SortOrder == "desc"
	less := func(a, b scored) bool { return a.ride.DepartureTime.Before(b.ride.DepartureTime) }
	switch q.SortBy {
	case SortByPrice:
		less = func(a, b scored) bool { return a.ride.PriceCents < b.ride.PriceCents }
	case SortByDistance:
		if geoSearch {
			less = func(a, b scored) bool { return a.distance < b.distance }
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	pages := (total + q.Limit - 1) / q.Limit
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	page := matched[start:end]

	items := make([]model.Summary, 0, len(page))
	for _, sc := range page {
		item := model.Summary{
			ID:             sc.ride.ID,
			Origin:         sc.ride.Origin,
			Destination:    sc.ride.Destination,
			DepartureTime:  sc.ride.DepartureTime.UTC().Format(time.RFC3339),
			PriceCents:     sc.ride.PriceCents,
			AvailableSeats: sc.ride.AvailableSeats,
			BookedSeats:    sc.booked,
			RemainingSeats: sc.remain,
			SmokingAllowed: sc.ride.SmokingAllowed,
			PetsAllowed:    sc.ride.PetsAllowed,
			Vehicle:        sc.ride.Vehicle.Public(),
		}
		if geoSearch {
			d := sc.distance
			item.DistanceKm = &d
		}
		// Search rows are always public-view: avatar and rating only.
		profile, err := s.Profiles.PublicProfile(ctx, sc.ride.DriverID)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			p := profile.Summary()
			item.Driver = &p
		}
		items = append(items, item)
	}

	return &SearchResult{Items: items, Page: q.Page, Pages: pages, Total: total, Count: len(items)}, nil
}

// GetByID loads one ride, enriches it with seat counts and the driver
// profile, then applies the visibility rule for the requesting user
// (zero means anonymous).
func (s *SearchService) GetByID(ctx context.Context, rideID, requestingUserID uint64) (*model.RideDetail, error) {
	rd, err := s.Rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profiles.PublicProfile(ctx, rd.DriverID)
	if err != nil {
		return nil, err
	}
	detail := rd.Detail(rd.ViewerOf(requestingUserID), profile)
	return &detail, nil
}

// PopularTrips returns the top city pairs among active future rides.
func (s *SearchService) PopularTrips(ctx context.Context, limit int) ([]repository.PopularTrip, error) {
	if limit < 1 {
		limit = DefaultPopularN
	}
	if limit > MaxPopularN {
		limit = MaxPopularN
	}
	return s.Rides.PopularTrips(ctx, limit, time.Now())
}
