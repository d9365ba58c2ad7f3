package notification

import (
	"context"
	"unicode/utf8"

	"firebase.google.com/go/v4/messaging"

	"taskmate/internal/domain/repository"
	"taskmate/pkg/logger"
)

const previewLimit = 120

// FCMNotifier delivers new-message alerts through Firebase Cloud Messaging.
// The chat core does not know or care how the alert is rendered; failures
// here are the caller's to log and swallow.
type FCMNotifier struct {
	client *messaging.Client
	users  repository.UserRepository
}

func NewFCMNotifier(client *messaging.Client, users repository.UserRepository) *FCMNotifier {
	return &FCMNotifier{
		client: client,
		users:  users,
	}
}

func (n *FCMNotifier) NotifyNewMessage(ctx context.Context, chatID, senderID, receiverID, body, senderDisplayName string) error {
	receiver, err := n.users.GetByID(ctx, receiverID)
	if err != nil {
		return err
	}
	if receiver.FCMToken == "" {
		logger.Debug("Receiver %s has no push token, skipping notification", receiverID)
		return nil
	}

	msg := &messaging.Message{
		Token: receiver.FCMToken,
		Notification: &messaging.Notification{
			Title: senderDisplayName,
			Body:  preview(body),
		},
		Data: map[string]string{
			"type":      "new_message",
			"chat_id":   chatID,
			"sender_id": senderID,
		},
	}

	_, err = n.client.Send(ctx, msg)
	return err
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewLimit {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewLimit]) + "…"
}
