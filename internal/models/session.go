package models

import (
	"time"

	"github.com/segmentio/ksuid"
)

// LiveSession represents one active WebSocket connection to a document room.
// It is ephemeral server-side state, never persisted.
type LiveSession struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	Color        string    `json:"color"` // hex color used for this user's cursor/highlight
	ConnectedAt  time.Time `json:"connected_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func NewLiveSession(documentID, userID, userName, color string) *LiveSession {
	now := time.Now()
	return &LiveSession{
		ID:           ksuid.New().String(),
		DocumentID:   documentID,
		UserID:       userID,
		UserName:     userName,
		Color:        color,
		ConnectedAt:  now,
		LastActiveAt: now,
	}
}
