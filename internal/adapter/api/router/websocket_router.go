package router

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up WebSocket routes; the handler authenticates
// the token itself.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
