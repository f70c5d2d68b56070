package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/game"
)

// GetQueueStatus reports current matchmaking queue depths and active rooms.
// Read-only; used by the lobby page to show activity before a player connects.
func GetQueueStatus(queue *game.Queue, rooms *game.RoomManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"casual":      queue.Size(),
			"ranked":      queue.RankedSize(),
			"activeRooms": rooms.ActiveRooms(),
		})
	}
}
