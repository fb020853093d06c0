package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
	"github.com/Sitaras/JourneyLink-sub000/internal/service"
)

// RideHandler exposes ride CRUD, search and the popular-trips aggregate.
type RideHandler struct {
	Rides  *service.RideService
	Search *service.SearchService
}

func NewRideHandler(rides *service.RideService, search *service.SearchService) *RideHandler {
	return &RideHandler{Rides: rides, Search: search}
}

// ----- DTOs -----

type rideCreateReq struct {
	Origin         model.Location `json:"origin"`
	Destination    model.Location `json:"destination"`
	DepartureTime  time.Time      `json:"departure_time"`
	AvailableSeats int            `json:"available_seats"`
	PriceCents     uint32         `json:"price_cents"`
	Vehicle        model.Vehicle  `json:"vehicle"`
	SmokingAllowed bool           `json:"smoking_allowed"`
	PetsAllowed    bool           `json:"pets_allowed"`
	AdditionalInfo string         `json:"additional_info"`
}

type rideUpdateReq struct {
	Origin         *model.Location `json:"origin"`
	Destination    *model.Location `json:"destination"`
	DepartureTime  *time.Time      `json:"departure_time"`
	AvailableSeats *int            `json:"available_seats"`
	PriceCents     *uint32         `json:"price_cents"`
	Vehicle        *model.Vehicle  `json:"vehicle"`
	SmokingAllowed *bool           `json:"smoking_allowed"`
	PetsAllowed    *bool           `json:"pets_allowed"`
	AdditionalInfo *string         `json:"additional_info"`
}

type rideCancelReq struct {
	Reason string `json:"reason"`
}

// Create posts a new ride with the caller as driver.
func (h *RideHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req rideCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	rd := &model.Ride{
		DriverID:       uid,
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureTime:  req.DepartureTime,
		AvailableSeats: req.AvailableSeats,
		PriceCents:     req.PriceCents,
		Vehicle:        req.Vehicle,
		SmokingAllowed: req.SmokingAllowed,
		PetsAllowed:    req.PetsAllowed,
		AdditionalInfo: strings.TrimSpace(req.AdditionalInfo),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	created, err := h.Rides.Create(ctx, rd)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, created.Detail(model.ViewerDriver, nil))
}

// Update edits a ride; only fields present in the body change.
func (h *RideHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rideID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ride id"})
	}
	var req rideUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	updated, err := h.Rides.Update(ctx, rideID, uid, service.UpdateInput{
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureTime:  req.DepartureTime,
		AvailableSeats: req.AvailableSeats,
		PriceCents:     req.PriceCents,
		Vehicle:        req.Vehicle,
		SmokingAllowed: req.SmokingAllowed,
		PetsAllowed:    req.PetsAllowed,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, updated.Detail(model.ViewerDriver, nil))
}

// Cancel terminates a ride with an optional reason.
func (h *RideHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rideID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ride id"})
	}
	var req rideCancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cancelled, err := h.Rides.Cancel(ctx, rideID, uid, strings.TrimSpace(req.Reason))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, cancelled.Detail(model.ViewerDriver, nil))
}

// SearchRides handles the public search endpoint. All filters are query
// parameters; a malformed value is a 400, never silently ignored.
func (h *RideHandler) SearchRides(c echo.Context) error {
	q, err := parseSearchQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Search.Search(ctx, *q)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Detail renders a single ride according to the caller's relationship
// with it. The route carries optional auth: anonymous callers get the
// public view.
func (h *RideHandler) Detail(c echo.Context) error {
	rideID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ride id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Search.GetByID(ctx, rideID, viewerID(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Popular returns the top city pairs among active future rides.
func (h *RideHandler) Popular(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trips, err := h.Search.PopularTrips(ctx, limit)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": trips})
}

// MyRides lists every ride the caller has posted as driver, including
// terminal ones, rendered in driver view.
func (h *RideHandler) MyRides(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rides, err := h.Rides.ListByDriver(ctx, uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]model.RideDetail, 0, len(rides))
	for i := range rides {
		out = append(out, rides[i].Detail(model.ViewerDriver, nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// parseSearchQuery turns the query string into a service.SearchQuery.
func parseSearchQuery(c echo.Context) (*service.SearchQuery, error) {
	q := service.SearchQuery{
		Filter: repository.SearchFilter{
			OriginCity:      strings.TrimSpace(c.QueryParam("originCity")),
			DestinationCity: strings.TrimSpace(c.QueryParam("destinationCity")),
			OriginRadiusKm:  service.DefaultRadiusKm,
			DestRadiusKm:    service.DefaultRadiusKm,
		},
		Page:      1,
		Limit:     service.DefaultPageSize,
		SortBy:    service.SortByDeparture,
		SortOrder: "asc",
	}

	var err error
	if q.Filter.OriginLat, err = floatParam(c, "originLat"); err != nil {
		return nil, err
	}
	if q.Filter.OriginLng, err = floatParam(c, "originLng"); err != nil {
		return nil, err
	}
	if q.Filter.DestLat, err = floatParam(c, "destinationLat"); err != nil {
		return nil, err
	}
	if q.Filter.DestLng, err = floatParam(c, "destinationLng"); err != nil {
		return nil, err
	}
	if (q.Filter.OriginLat == nil) != (q.Filter.OriginLng == nil) {
		return nil, errParam("originLat and originLng must be given together")
	}
	if (q.Filter.DestLat == nil) != (q.Filter.DestLng == nil) {
		return nil, errParam("destinationLat and destinationLng must be given together")
	}
	if r, err := floatParam(c, "originRadiusKm"); err != nil {
		return nil, err
	} else if r != nil && *r > 0 {
		q.Filter.OriginRadiusKm = *r
	}
	if r, err := floatParam(c, "destinationRadiusKm"); err != nil {
		return nil, err
	} else if r != nil && *r > 0 {
		q.Filter.DestRadiusKm = *r
	}

	if raw := c.QueryParam("departureDate"); raw != "" {
		// Server-local parse keeps the day boundary consistent with the
		// range predicate built in the store.
		d, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return nil, errParam("invalid departureDate, want YYYY-MM-DD")
		}
		q.Filter.DepartureDate = &d
	}

	if raw := c.QueryParam("maxPrice"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, errParam("invalid maxPrice")
		}
		v := uint32(n)
		q.Filter.MaxPriceCents = &v
	}
	if b, err := boolParam(c, "smokingAllowed"); err != nil {
		return nil, err
	} else {
		q.Filter.SmokingAllowed = b
	}
	if b, err := boolParam(c, "petsAllowed"); err != nil {
		return nil, err
	} else {
		q.Filter.PetsAllowed = b
	}

	if raw := c.QueryParam("minSeats"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, errParam("invalid minSeats")
		}
		q.MinSeats = n
	}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, errParam("invalid page")
		}
		q.Page = n
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > service.MaxPageSize {
			return nil, errParam("invalid limit")
		}
		q.Limit = n
	}

	if raw := c.QueryParam("sortBy"); raw != "" {
		switch raw {
		case service.SortByPrice, service.SortByDeparture, service.SortByDistance:
			q.SortBy = raw
		default:
			return nil, errParam("invalid sortBy")
		}
	}
	if raw := c.QueryParam("sortOrder"); raw != "" {
		switch strings.ToLower(raw) {
		case "asc", "desc":
			q.SortOrder = strings.ToLower(raw)
		default:
			return nil, errParam("invalid sortOrder")
		}
	}
	return &q, nil
}

type errParam string

func (e errParam) Error() string { return string(e) }

func floatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errParam("invalid " + name)
	}
	return &f, nil
}

func boolParam(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errParam("invalid " + name)
	}
	return &b, nil
}
