package handler

import (
	"context"
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"taskmate/internal/domain/repository"
	"taskmate/internal/infrastructure/firebase"
	"taskmate/internal/infrastructure/realtime"
	"taskmate/internal/infrastructure/websocket"
	"taskmate/pkg/errors"
	"taskmate/pkg/logger"
	"taskmate/pkg/response"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	manager  *websocket.Manager
	auth     *firebase.AuthProvider
	feeds    realtime.FeedSource
	messages repository.MessageRepository
	users    repository.UserRepository
}

func NewWebSocketHandler(
	manager *websocket.Manager,
	auth *firebase.AuthProvider,
	feeds realtime.FeedSource,
	messages repository.MessageRepository,
	users repository.UserRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		auth:     auth,
		feeds:    feeds,
		messages: messages,
		users:    users,
	}
}

// HandleConnection upgrades the request and runs the session. Browsers cannot
// set headers on websocket requests, so the token rides a query parameter.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return response.Error(c, errors.Unauthorized("Missing token", nil))
	}

	uid, err := h.auth.CurrentUserID(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("Websocket upgrade failed for %s: %v", uid, err)
		return err
	}

	// Each session gets its own subscription registry; its feeds die with
	// the connection. The request context ends when this handler returns,
	// so the session runs on its own context instead.
	subs := realtime.NewSubscriptionManager(h.feeds, h.messages, h.users)
	client := websocket.NewClient(context.Background(), uid, conn, subs)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump(h.manager)

	return nil
}
