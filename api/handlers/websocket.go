package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/collab-whiteboard/backend/internal/ws"
)

// WebSocketHandler exposes the realtime gateway over an HTTP route.
type WebSocketHandler struct {
	gateway *ws.Handler
}

// NewWebSocketHandler creates a WebSocketHandler over the given gateway.
func NewWebSocketHandler(gateway *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{
		gateway: gateway,
	}
}

// Attach handles GET /ws - upgrades the connection and serves it until the
// client disconnects.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	if err := h.gateway.HandleConnection(c.Writer, c.Request); err != nil {
		// The upgrader has already written the HTTP error response.
		log.Printf("[WS] Upgrade failed: %v", err)
	}
}

// RegisterRoutes registers the websocket route on the router.
func (h *WebSocketHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws", h.Attach)
}
