package middleware

// identity.go holds small helpers shared across middleware files for
// reading the authenticated user out of the Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's id as a string for use
// in cache and rate-limit keys, or "anon" when the request carries no
// identity.
func currentUserID(c echo.Context) string {
	if v, ok := c.Get("user_id").(uint64); ok && v != 0 {
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
