package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"taskmate/internal/domain/entity"
	"taskmate/internal/domain/repository"
	"taskmate/pkg/errors"
	"taskmate/pkg/logger"
)

const messagesSubcollection = "messages"

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(chatID string) *firestore.CollectionRef {
	return r.client.Collection(chatsCollection).Doc(chatID).Collection(messagesSubcollection)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	now := time.Now()
	message.CreatedAt = now
	message.UpdatedAt = now

	// A Set on the subcollection is what fires the store's snapshot feed;
	// exactly one change event per insert.
	_, err := r.messages(message.ChatID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return translateError(err, "Message")
	}

	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(chatID).Doc(messageID).Get(ctx)
	if err != nil {
		return nil, translateError(err, "Message")
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}

	return &message, nil
}

// ListByChat pages newest-first. Ordering is creation time with a document-id
// tie-break, never bare offset math over an unordered set, so a send landing
// between page fetches cannot reshuffle earlier pages.
func (r *firestoreMessageRepository) ListByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	base := r.messages(chatID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)

	total, err := r.count(ctx, base)
	if err != nil {
		return nil, 0, err
	}

	query := base
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing messages for chat %s: %v", chatID, err)
			return nil, 0, translateError(err, "Messages")
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

// MarkRead flips every unread message not sent by viewerID. Repeated calls
// find nothing left to flip and are no-ops.
func (r *firestoreMessageRepository) MarkRead(ctx context.Context, chatID, viewerID string) error {
	query := r.messages(chatID).
		Where("read", "==", false).
		Where("senderId", "!=", viewerID)

	iter := query.Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	now := time.Now()
	var jobs []*firestore.BulkWriterJob

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return translateError(err, "Messages")
		}

		job, err := bw.Update(doc.Ref, []firestore.Update{
			{Path: "read", Value: true},
			{Path: "readAt", Value: now},
			{Path: "updatedAt", Value: now},
		})
		if err != nil {
			return translateError(err, "Message")
		}
		jobs = append(jobs, job)
	}

	bw.End()

	// Per-write failures only surface through the job results.
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return translateError(err, "Message")
		}
	}

	if len(jobs) > 0 {
		logger.Debug("Marked %d messages read in chat %s for viewer %s", len(jobs), chatID, viewerID)
	}
	return nil
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, chatID, messageID string) error {
	_, err := r.messages(chatID).Doc(messageID).Delete(ctx)
	if err != nil {
		return translateError(err, "Message")
	}
	return nil
}

// CountUnread runs a server-side aggregation so the count stays correct under
// concurrent writers; no message bodies cross the wire.
func (r *firestoreMessageRepository) CountUnread(ctx context.Context, chatID, viewerID string) (int64, error) {
	query := r.messages(chatID).
		Where("read", "==", false).
		Where("senderId", "!=", viewerID)

	return r.count(ctx, query)
}

func (r *firestoreMessageRepository) count(ctx context.Context, query firestore.Query) (int64, error) {
	result, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, translateError(err, "Messages")
	}

	raw, ok := result["total"]
	if !ok {
		return 0, errors.Internal("Count aggregation returned no result", nil)
	}
	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, errors.Internal("Count aggregation returned unexpected type", nil)
	}

	return value.GetIntegerValue(), nil
}
