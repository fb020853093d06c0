package handler // handler defines the HTTP surface of the API

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Sitaras/JourneyLink-sub000/internal/model"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
)

// getUserID extracts the authenticated user id stored by the JWT
// middleware. Routes behind JWTAuth always have it; a missing value
// means a wiring mistake, reported as 401 rather than a panic.
func getUserID(c echo.Context) (uint64, error) {
	if v, ok := c.Get("user_id").(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errors.New("missing user_id in context")
}

// viewerID is getUserID for routes with optional authentication: it
// returns 0 for anonymous callers instead of an error.
func viewerID(c echo.Context) uint64 {
	v, _ := c.Get("user_id").(uint64)
	return v
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// writeDomainError maps sentinel errors from the repository and model
// layers onto HTTP responses. Anything unrecognized is a 500 with a
// generic body; the detail goes to the log, not to the client.
func writeDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRideNotFound),
		errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrInvalidState),
		errors.Is(err, repository.ErrCapacityExceeded),
		errors.Is(err, repository.ErrDuplicateMembership):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case isValidationError(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func isValidationError(err error) bool {
	for _, v := range []error{
		model.ErrSameCity,
		model.ErrPastDeparture,
		model.ErrSeatBounds,
		model.ErrPriceBounds,
		model.ErrMissingCity,
		model.ErrSeatsBelowBooked,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
