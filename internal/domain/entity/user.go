package entity

import "time"

// User carries the profile snapshot joined onto messages and chat previews.
// Identity itself lives with the auth collaborator; this record is display
// data plus the push token the notifier needs.
type User struct {
	ID          string `json:"id" firestore:"id"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	AvatarURL   string `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	FCMToken    string `json:"-" firestore:"fcmToken,omitempty"`

	Online   bool      `json:"online" firestore:"online"`
	LastSeen time.Time `json:"last_seen" firestore:"lastSeen"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
