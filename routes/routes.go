package routes

import (
	"time"

	"veilslot/handlers"
	"veilslot/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterBookingRoutes sets up the endpoints for slot booking.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle, secret []byte) {
	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware(secret))
		bookingGroup.POST("", hb.BookSlotHandler)
		bookingGroup.GET("", hb.ListMyBookingsHandler)
		bookingGroup.GET("/:id", hb.GetBookingHandler)
	}
}

// RegisterMarketplaceRoutes sets up the kiosk listing and purchase endpoints.
func RegisterMarketplaceRoutes(r *gin.Engine, hb *handlers.HandlerBundle, secret []byte) {
	market := r.Group("/api/marketplace")
	{
		market.Use(middleware.JWTAuthMiddleware(secret))
		market.POST("/listings", hb.CreateListingHandler)
		market.POST("/purchases", hb.CreatePurchaseHandler)
		market.GET("/kiosks/:id/listings", hb.ListKioskListingsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, secret []byte, requestsPerMin int) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", handlers.IdempotencyHeader},
		ExposeHeaders:    []string{"Content-Length", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(requestsPerMin))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb, secret)
	RegisterMarketplaceRoutes(r, hb, secret)
}
