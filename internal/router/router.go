package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Sitaras/JourneyLink-sub000/internal/config"
	"github.com/Sitaras/JourneyLink-sub000/internal/handler"
	"github.com/Sitaras/JourneyLink-sub000/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Rides   *handler.RideHandler
	Booking *handler.BookingHandler
}

// Register wires all routes onto the Echo instance.
//
// Three auth tiers exist:
//   - open: health, metrics, auth, search and popular trips
//   - optional auth: ride detail, whose response shape depends on who asks
//   - required auth: everything that creates or mutates state
//
// The redis-backed response cache wraps only the open read routes; the
// rate limiter wraps everything under /v1.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Use(middleware.RequestMetrics())

	v1 := e.Group("/v1")
	v1.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Auth.
	v1.POST("/auth/register", h.Auth.Register)
	v1.POST("/auth/login", h.Auth.Login)

	// Public reads. Search responses are shared across users, so they can
	// safely sit behind the shared response cache.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	v1.GET("/rides", h.Rides.SearchRides, cache)
	v1.GET("/trips/popular", h.Rides.Popular, cache)

	// Ride detail varies by viewer and must never be cached or served to
	// the wrong tier.
	v1.GET("/rides/:id", h.Rides.Detail, middleware.OptionalJWTAuth(cfg.JWTSecret))

	// Authenticated surface.
	auth := v1.Group("", middleware.JWTAuth(cfg.JWTSecret))
	auth.POST("/rides", h.Rides.Create)
	auth.PATCH("/rides/:id", h.Rides.Update)
	auth.POST("/rides/:id/cancel", h.Rides.Cancel)
	auth.GET("/my-rides", h.Rides.MyRides)

	auth.POST("/rides/:id/bookings", h.Booking.Create)
	auth.GET("/rides/:id/bookings", h.Booking.ListForRide)
	auth.POST("/bookings/:id/accept", h.Booking.Accept)
	auth.POST("/bookings/:id/decline", h.Booking.Decline)
	auth.POST("/bookings/:id/cancel", h.Booking.Cancel)
	auth.GET("/my-bookings", h.Booking.MyBookings)
}
