package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Sitaras/JourneyLink-sub000/internal/config"
	"github.com/Sitaras/JourneyLink-sub000/internal/database"
	"github.com/Sitaras/JourneyLink-sub000/internal/handler"
	"github.com/Sitaras/JourneyLink-sub000/internal/logging"
	"github.com/Sitaras/JourneyLink-sub000/internal/queue"
	"github.com/Sitaras/JourneyLink-sub000/internal/repository"
	"github.com/Sitaras/JourneyLink-sub000/internal/router"
	"github.com/Sitaras/JourneyLink-sub000/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter, response cache and
	// job cancellation tombstones are disabled and the sweep still keeps
	// rides correct.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, cache/ratelimit/job-cancel disabled")
	}

	rideRepo := repository.NewRideRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	userRepo := repository.NewUserRepo(db)

	notifier := queue.NewAMQPNotifier(cfg.RabbitURL)
	scheduler := queue.NewAMQPScheduler(cfg.RabbitURL, rdb)

	searchSvc := service.NewSearchService(rideRepo, userRepo, logger)
	bookingSvc := service.NewBookingService(rideRepo, bookingRepo, notifier, logger)
	rideSvc := service.NewRideService(rideRepo, scheduler, notifier, logger)
	lifecycleSvc := service.NewLifecycleService(rideRepo, notifier, logger)

	go queue.StartNotificationConsumer(cfg.RabbitURL)
	go queue.StartLifecycleConsumer(cfg.RabbitURL, scheduler, lifecycleSvc)

	// Periodic sweep backstops lost or cancelled completion jobs.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go lifecycleSvc.RunSweeper(sweepCtx, time.Duration(cfg.SweepIntervalMin)*time.Minute)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, userRepo),
		Rides:   handler.NewRideHandler(rideSvc, searchSvc),
		Booking: handler.NewBookingHandler(bookingSvc),
	}, rdb)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
