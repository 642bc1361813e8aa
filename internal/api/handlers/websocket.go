package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playuno/backend/internal/ws"
)

// HandleGameWebSocket handles real-time game communication
func HandleGameWebSocket(gateway *ws.Gateway) gin.HandlerFunc {
	return gateway.HandleWebSocket
}
