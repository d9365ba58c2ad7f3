package realtime

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskmate/pkg/errors"
	"taskmate/pkg/logger"
)

// firestoreFeedSource turns Firestore query snapshots on a chat's messages
// subcollection into a stream of changed-message ids.
type firestoreFeedSource struct {
	client *firestore.Client
	buffer int
}

func NewFirestoreFeedSource(client *firestore.Client, buffer int) FeedSource {
	if buffer <= 0 {
		buffer = 32
	}
	return &firestoreFeedSource{
		client: client,
		buffer: buffer,
	}
}

func (s *firestoreFeedSource) Open(ctx context.Context, chatID string) (<-chan string, error) {
	if chatID == "" {
		return nil, errors.Validation("Chat id is required", nil)
	}

	iter := s.client.Collection("chats").Doc(chatID).Collection("messages").Snapshots(ctx)
	events := make(chan string, s.buffer)

	go func() {
		defer close(events)
		defer iter.Stop()

		// The first snapshot replays the existing history as Added changes.
		// It is state, not change, and must not be re-delivered.
		first := true

		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Warn("Message feed for chat %s closed: %v", chatID, err)
				}
				return
			}

			if first {
				first = false
				continue
			}

			for _, change := range snap.Changes {
				if change.Kind == firestore.DocumentRemoved {
					continue
				}
				select {
				case events <- change.Doc.Ref.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
