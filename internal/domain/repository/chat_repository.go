package repository

import (
	"context"

	"taskmate/internal/domain/entity"
)

type ChatRepository interface {
	// Create inserts the chat under its triple-derived id and fails with
	// Conflict when the (task, customer, tasker) row already exists.
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	GetByTriple(ctx context.Context, taskID, customerID, taskerID string) (*entity.Chat, error)
	ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error)
	ListByTaskID(ctx context.Context, taskID string) ([]*entity.Chat, error)
	Update(ctx context.Context, chat *entity.Chat) error
	// DeleteWithMessages removes the chat and every message it owns as a unit.
	DeleteWithMessages(ctx context.Context, chatID string) error
}
