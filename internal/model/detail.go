package model

// Viewer classifies the relationship between a requesting user and a ride.
// It drives the visibility rule applied everywhere a ride is rendered:
//
//  ViewerDriver    – the ride's driver: full passenger list, full vehicle
//                    and driver info.
//  ViewerPassenger – a user with any current or past membership entry:
//                    driver contact fields, but no passenger list.
//  ViewerPublic    – everyone else (including anonymous): no passenger
//                    list, vehicle reduced to make/model/color, driver
//                    profile reduced to first name, avatar and rating.
type Viewer int

const (
	ViewerPublic Viewer = iota
	ViewerPassenger
	ViewerDriver
)

// ViewerOf resolves the viewer class for a user id. Zero means anonymous.
func (r *Ride) ViewerOf(userID uint64) Viewer {
	if !r.IsParty(userID) {
		return ViewerPublic
	}
	if userID == r.DriverID {
		return ViewerDriver
	}
	return ViewerPassenger
}

// RideDetail is a ride as rendered to a particular viewer, with derived
// seat counts and the driver profile joined. Passengers is nil unless the
// viewer is the driver.
type RideDetail struct {
	Ride
	BookedSeats    int            `json:"booked_seats"`
	RemainingSeats int            `json:"remaining_seats"`
	Driver         *DriverProfile `json:"driver,omitempty"`
}

// Detail applies the visibility rule and computes derived seat counts.
// profile may be nil when the driver row is missing; the detail is still
// produced with nil driver fields.
func (r *Ride) Detail(viewer Viewer, profile *DriverProfile) RideDetail {
	d := RideDetail{Ride: *r, BookedSeats: r.BookedSeats(), RemainingSeats: r.RemainingSeats()}
	switch viewer {
	case ViewerDriver:
		if profile != nil {
			p := *profile
			d.Driver = &p
		}
	case ViewerPassenger:
		d.Passengers = nil
		d.Vehicle = d.Vehicle.Public()
		if profile != nil {
			p := *profile
			d.Driver = &p
		}
	default:
		d.Passengers = nil
		d.Vehicle = d.Vehicle.Public()
		if profile != nil {
			p := profile.Public()
			d.Driver = &p
		}
	}
	return d
}

// Summary is the row shape returned by ride search. Search results are
// always public-view regardless of the caller, so the driver projection is
// avatar and rating only, and membership entries never appear.
type Summary struct {
	ID             uint64         `json:"id"`
	Origin         Location       `json:"origin"`
	Destination    Location       `json:"destination"`
	DepartureTime  string         `json:"departure_time"`
	PriceCents     uint32         `json:"price_cents"`
	AvailableSeats int            `json:"available_seats"`
	BookedSeats    int            `json:"booked_seats"`
	RemainingSeats int            `json:"remaining_seats"`
	SmokingAllowed bool           `json:"smoking_allowed"`
	PetsAllowed    bool           `json:"pets_allowed"`
	Vehicle        Vehicle        `json:"vehicle"`
	Driver         *DriverProfile `json:"driver,omitempty"`
	DistanceKm     *float64       `json:"distance_km,omitempty"`
}
