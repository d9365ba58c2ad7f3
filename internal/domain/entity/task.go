package entity

import "time"

const (
	TaskStatusOpen      = "open"
	TaskStatusAssigned  = "assigned"
	TaskStatusCompleted = "completed"
	TaskStatusCancelled = "cancelled"
)

// Task is the marketplace job a chat hangs off. The chat core only needs
// enough of it to scope conversations and purge them on completion.
type Task struct {
	ID         string    `json:"id" firestore:"id"`
	Title      string    `json:"title" firestore:"title"`
	Status     string    `json:"status" firestore:"status"`
	CustomerID string    `json:"customer_id" firestore:"customerId"`
	TaskerID   string    `json:"tasker_id,omitempty" firestore:"taskerId,omitempty"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" firestore:"updatedAt"`
}
