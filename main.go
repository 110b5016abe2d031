// File: main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotwise/config"
	"slotwise/cron"
	"slotwise/database"
	bookingRepo "slotwise/database/repository/booking"
	slotRepo "slotwise/database/repository/slot"
	"slotwise/handlers"
	"slotwise/metrics"
	"slotwise/middleware"
	"slotwise/realtime"
	"slotwise/routes"
	"slotwise/services/reservation"
	"slotwise/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitAuthCache()
	metrics.Register()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// Repositories.
	slots := slotRepo.NewMongoSlotRepo()
	bookings := bookingRepo.NewMongoBookingRepo()

	// The hub and the engine reference each other: the hub drives the
	// engine from client messages, the engine broadcasts through the
	// hub. Construct the hub first, wire the engine in after.
	hub := realtime.NewHub()
	engine := reservation.NewEngine(slots, bookings, hub, reservation.SystemClock(), config.HoldTTL())
	hub.SetReservations(engine)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go hub.Run(rootCtx)
	engine.StartSweeper(rootCtx, config.HoldSweepInterval())

	cron.StartMaintenanceWorker(slots, bookings)
	utils.StartHealthMonitor(utils.GetAuthCacheClient(), database.MongoClient)

	// Handlers and routes.
	routes.RegisterRoutes(router, routes.Deps{
		Hub:       hub,
		Slots:     handlers.NewSlotHandler(engine, slots),
		Bookings:  handlers.NewBookingHandler(engine, bookings),
		AuthCache: utils.GetAuthCacheClient(),
	})

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
