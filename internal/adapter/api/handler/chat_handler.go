package handler

import (
	"github.com/labstack/echo/v4"

	"taskmate/internal/usecase"
	"taskmate/pkg/errors"
	"taskmate/pkg/response"
	"taskmate/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type CreateChatRequest struct {
	TaskID     string `json:"task_id" validate:"required"`
	CustomerID string `json:"customer_id" validate:"required"`
	TaskerID   string `json:"tasker_id" validate:"required"`
}

type SendMessageRequest struct {
	Body string `json:"body" validate:"required"`
	Type string `json:"type" validate:"omitempty,oneof=text image file"`
}

// CreateChat opens the chat for a (task, customer, tasker) triple, returning
// the existing one when it is already there.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req CreateChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.GetOrCreateChat(c.Request().Context(), uid, usecase.CreateChatInput{
		TaskID:     req.TaskID,
		CustomerID: req.CustomerID,
		TaskerID:   req.TaskerID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, chat)
}

func (h *ChatHandler) ListChats(c echo.Context) error {
	uid := c.Get("uid").(string)

	chats, err := h.chatUseCase.ListChats(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chats)
}

func (h *ChatHandler) GetChat(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	chat, err := h.chatUseCase.GetChatByID(c.Request().Context(), uid, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// ListMessages returns one page of a chat's history, oldest first within the
// page.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")
	params := utils.GetPaginationParams(c)

	messages, total, err := h.chatUseCase.ListMessages(c.Request().Context(), uid, chatID, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	page := params.Offset/params.Limit + 1
	return response.Paginated(c, messages, total, page, params.Limit)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), uid, usecase.SendMessageInput{
		ChatID: chatID,
		Body:   req.Body,
		Type:   req.Type,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	if err := h.chatUseCase.MarkChatRead(c.Request().Context(), uid, chatID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")
	messageID := c.Param("messageId")

	if err := h.chatUseCase.DeleteMessage(c.Request().Context(), uid, chatID, messageID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "deleted"})
}

// GetUnreadCount reports the caller's total unread messages across all chats.
func (h *ChatHandler) GetUnreadCount(c echo.Context) error {
	uid := c.Get("uid").(string)

	total, err := h.chatUseCase.CountAllUnread(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int64{"unread_count": total})
}

func (h *ChatHandler) ArchiveChat(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	if err := h.chatUseCase.ArchiveChat(c.Request().Context(), uid, chatID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "archived"})
}

func (h *ChatHandler) BlockChat(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	if err := h.chatUseCase.BlockChat(c.Request().Context(), uid, chatID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "blocked"})
}
