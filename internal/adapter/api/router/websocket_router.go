package router

import (
	"github.com/labstack/echo/v4"

	"taskmate/internal/adapter/api/handler"
)

// Websocket auth happens inside the handler: the token rides the query
// string, not an Authorization header.
func SetupWebSocketRoutes(e *echo.Echo, h *handler.WebSocketHandler) {
	e.GET("/ws", h.HandleConnection)
}
