package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	DriverHandler  *handler.DriverHandler
	TripHandler    *handler.TripHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.CreateBooking)
			bookings.POST("/estimate", deps.BookingHandler.EstimateFare)
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.DELETE("/:id", deps.BookingHandler.DeleteBooking)
			bookings.POST("/:id/assign", deps.BookingHandler.AssignDriver)
			bookings.POST("/:id/assign-all", deps.BookingHandler.AssignAllDrivers)
			bookings.POST("/:id/cancel", deps.BookingHandler.CancelBooking)
			bookings.POST("/:id/start", deps.TripHandler.StartTrip)
			bookings.POST("/:id/end", deps.TripHandler.EndTrip)
			bookings.POST("/:id/manual-complete", deps.TripHandler.ManualComplete)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.RegisterDriver)
			drivers.GET("/nearby", deps.DriverHandler.NearbyDrivers)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.POST("/:id/heartbeat", deps.DriverHandler.Heartbeat)
			drivers.POST("/:id/offline", deps.DriverHandler.GoOffline)
			drivers.GET("/:id/bookings/current", deps.DriverHandler.CurrentBooking)
			drivers.POST("/:id/bookings/:bookingId/accept", deps.DriverHandler.AcceptBooking)
			drivers.POST("/:id/bookings/:bookingId/reject", deps.DriverHandler.RejectBooking)
		}
	}

	return router
}
