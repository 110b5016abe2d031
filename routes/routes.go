package routes

import (
	"time"

	"slotwise/handlers"
	"slotwise/middleware"
	"slotwise/realtime"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Hub       *realtime.Hub
	Slots     *handlers.SlotHandler
	Bookings  *handlers.BookingHandler
	AuthCache *redis.Client
}

// RegisterRoutes wires the whole HTTP surface.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Realtime event channel; auth happens inside the handler because
	// websocket dials carry the token in the query string.
	r.GET("/ws", handlers.WSHandler(deps.Hub, deps.AuthCache))

	r.GET("/healthz", handlers.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAuthRoutes(r, deps)
	registerSlotRoutes(r, deps)
	registerBookingRoutes(r, deps)
}

func registerAuthRoutes(r *gin.Engine, deps Deps) {
	h := handlers.NewAuthHandler(deps.AuthCache)

	// The portal backend mints user tokens with its admin credential.
	r.POST("/api/auth/token", middleware.AdminAuthMiddleware(), h.MintToken)
	r.POST("/api/auth/logout", middleware.JWTAuthMiddleware(deps.AuthCache), h.Logout)
}

func registerSlotRoutes(r *gin.Engine, deps Deps) {
	api := r.Group("/api/slots")
	{
		api.Use(middleware.JWTAuthMiddleware(deps.AuthCache))
		api.GET("", deps.Slots.ListSlots)
	}

	// Write path for the upstream schedule producer.
	admin := r.Group("/api/admin/slots")
	{
		admin.Use(middleware.AdminAuthMiddleware())
		admin.POST("", deps.Slots.UpsertSlot)
		admin.DELETE("/:id", deps.Slots.DeactivateSlot)
	}
}

func registerBookingRoutes(r *gin.Engine, deps Deps) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware(deps.AuthCache))
		api.POST("", deps.Bookings.CommitBooking)
		api.GET("", deps.Bookings.ListMyBookings)
		api.GET("/:id", deps.Bookings.GetBooking)
	}
}
