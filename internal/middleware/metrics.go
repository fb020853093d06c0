package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Sitaras/JourneyLink-sub000/internal/observability"
)

// RequestMetrics counts every request by method, route template and
// status code. The route template (c.Path) is used instead of the raw
// URL so that /v1/rides/42 and /v1/rides/43 land in the same series.
func RequestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			observability.HTTPRequestsTotal.WithLabelValues(
				c.Request().Method, path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
