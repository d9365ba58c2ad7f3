package entity

import "time"

const (
	ChatStatusActive   = "active"
	ChatStatusArchived = "archived"
	ChatStatusBlocked  = "blocked"
)

// Chat is a conversation scoped to exactly one task and its two participants.
// At most one chat exists per (task, customer, tasker) triple; the document id
// is derived from the triple so the store enforces uniqueness.
type Chat struct {
	ID           string   `json:"id" firestore:"id"`
	TaskID       string   `json:"task_id" firestore:"taskId"`
	CustomerID   string   `json:"customer_id" firestore:"customerId"`
	TaskerID     string   `json:"tasker_id" firestore:"taskerId"`
	Participants []string `json:"participants" firestore:"participants"`
	Status       string   `json:"status" firestore:"status"`

	// Denormalized last-message cache, refreshed by the send pipeline.
	LastMessage     string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt   time.Time `json:"last_message_at,omitempty" firestore:"lastMessageAt,omitempty"`
	LastMessageFrom string    `json:"last_message_from,omitempty" firestore:"lastMessageFrom,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// OtherParticipant returns the participant on the far side of the chat from
// userID, or "" when userID is not a participant.
func (c *Chat) OtherParticipant(userID string) string {
	switch userID {
	case c.CustomerID:
		return c.TaskerID
	case c.TaskerID:
		return c.CustomerID
	}
	return ""
}

// HasParticipant reports whether userID is the chat's customer or tasker.
func (c *Chat) HasParticipant(userID string) bool {
	return userID == c.CustomerID || userID == c.TaskerID
}
