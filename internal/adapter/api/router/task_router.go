package router

import (
	"github.com/labstack/echo/v4"

	"taskmate/internal/adapter/api/handler"
	"taskmate/internal/adapter/api/middleware"
)

func SetupTaskRoutes(e *echo.Echo, h *handler.TaskHandler, authMW *middleware.AuthMiddleware) {
	tasks := e.Group("/v1/tasks", authMW.Authenticate())

	tasks.POST("/:id/complete", h.CompleteTask)
}
