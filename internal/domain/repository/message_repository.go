package repository

import (
	"context"

	"taskmate/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error)
	// ListByChat returns messages newest-first, ordered by creation time with
	// a document-id tie-break so pagination stays stable under concurrent
	// inserts. Callers reverse for display.
	ListByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)
	// MarkRead flips read=true on every message in the chat not sent by
	// viewerID. Idempotent.
	MarkRead(ctx context.Context, chatID, viewerID string) error
	Delete(ctx context.Context, chatID, messageID string) error
	// CountUnread is a store-level count of read == false && senderId !=
	// viewerID, correct under concurrent writers.
	CountUnread(ctx context.Context, chatID, viewerID string) (int64, error)
}
