package handler

import (
	"github.com/labstack/echo/v4"

	"taskmate/internal/usecase"
	"taskmate/pkg/response"
)

type TaskHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewTaskHandler(chatUseCase *usecase.ChatUseCase) *TaskHandler {
	return &TaskHandler{
		chatUseCase: chatUseCase,
	}
}

// CompleteTask marks a task completed and purges its chats. Customer only.
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	uid := c.Get("uid").(string)
	taskID := c.Param("id")

	if err := h.chatUseCase.CompleteTask(c.Request().Context(), uid, taskID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "completed"})
}
