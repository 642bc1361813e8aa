package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playuno/backend/internal/game"
)

// GetRoomState returns the public (hand-free) view of a room, for spectator
// pages and the pre-join lobby screen.
func GetRoomState(registry *game.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := strings.ToUpper(c.Param("id"))
		room, err := registry.Get(roomID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, room.PublicSnapshot())
	}
}
