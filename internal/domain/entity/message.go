package entity

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message belongs to exactly one chat and cannot outlive it. Read starts
// false and is flipped only by a participant other than the sender.
type Message struct {
	ID       string `json:"id" firestore:"id"`
	ChatID   string `json:"chat_id" firestore:"chatId"`
	SenderID string `json:"sender_id" firestore:"senderId"`
	Body     string `json:"body" firestore:"body"`
	Type     string `json:"type" firestore:"type"`

	Read   bool       `json:"read" firestore:"read"`
	ReadAt *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}
