package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewSessionID mints an unguessable session token (UUID v4 from crypto/rand).
func NewSessionID() string {
	return uuid.NewString()
}

// ChatMessage is a chat line exchanged inside a session.
type ChatMessage struct {
	SessionID  string    `json:"sessionId"`
	SenderID   int64     `json:"senderId"`
	SenderRole Role      `json:"senderRole"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sentAt"`
}
