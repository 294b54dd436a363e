package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/roamfleet/vehicle-rental/internal/config"
	"github.com/roamfleet/vehicle-rental/internal/database"
	"github.com/roamfleet/vehicle-rental/internal/handler"
	"github.com/roamfleet/vehicle-rental/internal/middleware"
	"github.com/roamfleet/vehicle-rental/internal/queue"
	"github.com/roamfleet/vehicle-rental/internal/repository"
	"github.com/roamfleet/vehicle-rental/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: with no client, rate limiting and response
	// caching silently turn into pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	profiles := repository.NewProfileRepo(db)
	tokens := repository.NewTokenRepo(db)
	verifications := repository.NewVerificationRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	bookings := repository.NewBookingRepo(db)
	audit := repository.NewAuditRepo(db)
	stats := repository.NewStatsRepo(db)

	authH := handler.NewAuthHandler(cfg, profiles, tokens, verifications, audit)
	publicH := handler.NewPublicHandler(vehicles)
	bookingH := handler.NewBookingHandler(bookings, vehicles, audit)
	adminVehicleH := handler.NewAdminVehicleHandler(vehicles, audit)
	adminBookingH := handler.NewAdminBookingHandler(bookings, audit)
	adminUserH := handler.NewAdminUserHandler(profiles, tokens, audit)
	adminStatsH := handler.NewAdminStatsHandler(stats)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, bookingH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminVehicleH, adminBookingH, adminUserH, adminStatsH, cfg.JWTSecret)

	// Background consumer mirroring booking.created events into the
	// booking log; it reconnects on its own and never stops the server.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
