package router

import (
	"github.com/labstack/echo/v4"

	"taskmate/internal/adapter/api/handler"
	"taskmate/internal/adapter/api/middleware"
)

func SetupChatRoutes(e *echo.Echo, h *handler.ChatHandler, authMW *middleware.AuthMiddleware) {
	chats := e.Group("/v1/chats", authMW.Authenticate())

	chats.GET("", h.ListChats)
	chats.POST("", h.CreateChat)
	chats.GET("/unread", h.GetUnreadCount)
	chats.GET("/:id", h.GetChat)
	chats.GET("/:id/messages", h.ListMessages)
	chats.POST("/:id/messages", h.SendMessage)
	chats.PUT("/:id/read", h.MarkRead)
	chats.DELETE("/:id/messages/:messageId", h.DeleteMessage)
	chats.POST("/:id/archive", h.ArchiveChat)
	chats.POST("/:id/block", h.BlockChat)
}
