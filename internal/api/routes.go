package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/api/handlers"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/middleware"
	"github.com/playpong/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, wsHandler *ws.Handler, queue *game.Queue, rooms *game.RoomManager, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	// No-cache middleware for development
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		gameGroup := v1.Group("/game")
		{
			gameGroup.GET("/queue/status", handlers.GetQueueStatus(queue, rooms))
			gameGroup.GET("/ws", wsHandler.HandleWebSocket)
		}
	}
}
