package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"taskmate/internal/domain/entity"
	"taskmate/internal/domain/repository"
	"taskmate/pkg/errors"
	"taskmate/pkg/logger"
)

const chatsCollection = "chats"

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

// ChatDocID derives the chat document id from the (task, customer, tasker)
// triple. The store's create-if-absent on this id is the uniqueness authority
// for "one chat per triple".
func ChatDocID(taskID, customerID, taskerID string) string {
	return fmt.Sprintf("%s_%s_%s", taskID, customerID, taskerID)
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = ChatDocID(chat.TaskID, chat.CustomerID, chat.TaskerID)
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	// Create, not Set: a concurrent create of the same triple must surface as
	// Conflict so the caller can re-fetch the winner.
	_, err := r.client.Collection(chatsCollection).Doc(chat.ID).Create(ctx, chat)
	if err != nil {
		return translateError(err, "Chat")
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection(chatsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translateError(err, "Chat")
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}

	return &chat, nil
}

func (r *firestoreChatRepository) GetByTriple(ctx context.Context, taskID, customerID, taskerID string) (*entity.Chat, error) {
	return r.GetByID(ctx, ChatDocID(taskID, customerID, taskerID))
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error) {
	query := r.client.Collection(chatsCollection).Where("participants", "array-contains", userID)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var chats []*entity.Chat
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing chats for user %s: %v", userID, err)
			return nil, translateError(err, "Chats")
		}

		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
			continue
		}
		chats = append(chats, &chat)
	}

	return chats, nil
}

func (r *firestoreChatRepository) ListByTaskID(ctx context.Context, taskID string) ([]*entity.Chat, error) {
	query := r.client.Collection(chatsCollection).Where("taskId", "==", taskID)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var chats []*entity.Chat
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translateError(err, "Chats")
		}

		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
			continue
		}
		chats = append(chats, &chat)
	}

	return chats, nil
}

func (r *firestoreChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	chat.UpdatedAt = time.Now()

	_, err := r.client.Collection(chatsCollection).Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return translateError(err, "Chat")
	}

	return nil
}

// DeleteWithMessages purges the chat and its messages subcollection as a
// unit. Messages cannot outlive their chat.
func (r *firestoreChatRepository) DeleteWithMessages(ctx context.Context, chatID string) error {
	chatRef := r.client.Collection(chatsCollection).Doc(chatID)

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob

	iter := chatRef.Collection(messagesSubcollection).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return translateError(err, "Messages")
		}
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			return translateError(err, "Message")
		}
		jobs = append(jobs, job)
	}

	chatJob, err := bw.Delete(chatRef)
	if err != nil {
		return translateError(err, "Chat")
	}
	bw.End()

	// Per-write failures only surface through the job results.
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return translateError(err, "Message")
		}
	}
	if _, err := chatJob.Results(); err != nil {
		return translateError(err, "Chat")
	}

	return nil
}
