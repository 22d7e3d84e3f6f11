package routes

import (
	"time"

	"harold/handlers"
	"harold/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterChatRoutes registers the websocket and SSE chat endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	auth := middleware.OptionalMemberAuth(hb.Logger)
	limit := hb.RateLimiter.Middleware(hb.Logger)

	r.GET("/ws/chat", limit, auth, hb.Chat.WebSocket)

	api := r.Group("/api")
	api.Use(limit, auth)
	{
		api.POST("/chat", hb.Chat.Stream)
	}
}

// RegisterReservationRoutes registers the confirmation lookup.
func RegisterReservationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/reservations")
	api.Use(hb.RateLimiter.Middleware(hb.Logger))
	{
		api.GET("/:id", hb.Reservations.GetReservation)
	}
}

// RegisterOpsRoutes registers health and metrics.
func RegisterOpsRoutes(r *gin.Engine) {
	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterChatRoutes(r, hb)
	RegisterReservationRoutes(r, hb)
	RegisterOpsRoutes(r)
}
