package usecase

import "context"

// Notifier is the notification collaborator: it receives new-message events
// and turns them into user-visible alerts however it sees fit.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, chatID, senderID, receiverID, body, senderDisplayName string) error
}

// RealtimePublisher pushes payloads to connected client sessions.
type RealtimePublisher interface {
	PublishToChat(chatID string, payload []byte, excludeUserID string)
	PublishToUser(userID string, payload []byte)
}
