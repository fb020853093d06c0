package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
)

// SearchFilter is the storable part of a ride search: everything that can
// be pushed into the WHERE clause. Derived-seat filtering (min remaining
// seats) cannot be expressed against stored columns and is applied by the
// service after seat accounting.
//
// Coordinate filters take precedence over city-text filters when both are
// set; the service enforces that rule before calling Search.
type SearchFilter struct {
	OriginCity      string
	DestinationCity string

	OriginLat      *float64
	OriginLng      *float64
	OriginRadiusKm float64

	DestLat      *float64
	DestLng      *float64
	DestRadiusKm float64

	// DepartureDate restricts to [day start, day start + 24h) in the
	// server's local zone. Day-boundary semantics are inherited from the
	// product and are known to be wrong for cross-timezone users; see
	// the note on Service.Search.
	DepartureDate *time.Time

	MaxPriceCents  *uint32
	SmokingAllowed *bool
	PetsAllowed    *bool
}

// Search returns the candidate set for a filter: ACTIVE rides with future
// departure matching every storable predicate, memberships preloaded,
// ordered by departure time ascending as the stable base order. Sorting
// by price or distance, derived-seat filtering and pagination happen in
// the service on top of this set.
func (r *RideRepo) Search(ctx context.Context, f SearchFilter, now time.Time) ([]model.Ride, error) {
	where := []string{"status = ?", "departure_time >= ?"}
	args := []any{model.RideStatusActive, now.UTC()}

	if f.DepartureDate != nil {
		start := *f.DepartureDate
		where = append(where, "departure_time >= ?", "departure_time < ?")
		args = append(args, start, start.Add(24*time.Hour))
	}

	if f.OriginLat != nil && f.OriginLng != nil {
		// ST_Distance_Sphere works in meters on (lng, lat) points.
		where = append(where, "ST_Distance_Sphere(POINT(origin_lng, origin_lat), POINT(?, ?)) <= ?")
		args = append(args, *f.OriginLng, *f.OriginLat, f.OriginRadiusKm*1000)
	} else if f.OriginCity != "" {
		where = append(where, "LOWER(origin_city) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(f.OriginCity))+"%")
	}

	if f.DestLat != nil && f.DestLng != nil {
		where = append(where, "ST_Distance_Sphere(POINT(dest_lng, dest_lat), POINT(?, ?)) <= ?")
		args = append(args, *f.DestLng, *f.DestLat, f.DestRadiusKm*1000)
	} else if f.DestinationCity != "" {
		where = append(where, "LOWER(dest_city) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(f.DestinationCity))+"%")
	}

	if f.MaxPriceCents != nil {
		where = append(where, "price_cents <= ?")
		args = append(args, *f.MaxPriceCents)
	}
	if f.SmokingAllowed != nil {
		where = append(where, "smoking_allowed = ?")
		args = append(args, *f.SmokingAllowed)
	}
	if f.PetsAllowed != nil {
		where = append(where, "pets_allowed = ?")
		args = append(args, *f.PetsAllowed)
	}

	query := `SELECT ` + rideColumns + ` FROM rides WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY departure_time ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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

// PopularTrip is one row of the popular-trips aggregate: a (origin city,
// destination city) pair with its ride count and cheapest seat price.
type PopularTrip struct {
	OriginCity      string `json:"origin_city"`
	DestinationCity string `json:"destination_city"`
	Count           int    `json:"count"`
	MinPriceCents   uint32 `json:"min_price_cents"`
}

// PopularTrips groups ACTIVE future rides by city pair and returns the
// top-N pairs by occurrence count. Pure aggregate, no state mutation.
func (r *RideRepo) PopularTrips(ctx context.Context, limit int, now time.Time) ([]PopularTrip, error) {
	const q = `SELECT origin_city, dest_city, COUNT(*) AS cnt, MIN(price_cents)
		FROM rides
		WHERE status = ? AND departure_time >= ?
		GROUP BY origin_city, dest_city
		ORDER BY cnt DESC, origin_city, dest_city
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.RideStatusActive, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PopularTrip, 0, limit)
	for rows.Next() {
		var t PopularTrip
		if err := rows.Scan(&t.OriginCity, &t.DestinationCity, &t.Count, &t.MinPriceCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
