package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/service"
)

// BookingHandler exposes the booking state machine over HTTP. Every
// route requires authentication; role checks (driver vs passenger) live
// in the service, not here.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(b *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

// Create requests a seat on a ride for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rideID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ride id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.Create(ctx, rideID, uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Accept confirms a pending booking. Driver only.
func (h *BookingHandler) Accept(c echo.Context) error {
	return h.transition(c, h.Bookings.Accept)
}

// Decline rejects a pending booking. Driver only.
func (h *BookingHandler) Decline(c echo.Context) error {
	return h.transition(c, h.Bookings.Decline)
}

// Cancel withdraws a booking. The passenger cancelling lands in
// CANCELLED; the driver revoking lands in DECLINED.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.Bookings.Cancel)
}

func (h *BookingHandler) transition(c echo.Context, op func(context.Context, uint64, uint64) (*model.Booking, error)) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := op(ctx, bookingID, uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ListForRide lists bookings on a ride for its driver. `pending=true`
// restricts the list to requests still awaiting a decision.
func (h *BookingHandler) ListForRide(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rideID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ride id"})
	}
	pendingOnly := false
	if raw := c.QueryParam("pending"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pending"})
		}
		pendingOnly = b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.ListForRide(ctx, rideID, uid, pendingOnly)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MyBookings lists every booking the caller holds as passenger. With
// ?active=true only pending and confirmed bookings are returned.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	activeOnly := false
	if raw := c.QueryParam("active"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid active"})
		}
		activeOnly = b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.ListForPassenger(ctx, uid, activeOnly)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
