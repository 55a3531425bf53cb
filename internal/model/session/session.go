package session

import "time"

// Session captures a transient anonymous voice-chat session.
type Session struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profileId"`
	CreatedAt time.Time `json:"createdAt"`
}
