package model

import (
	"time"
)

// EventType represents the type of session event.
type EventType string

const (
	EventSessionCreated  EventType = "session_created"
	EventSessionRenamed  EventType = "session_renamed"
	EventSessionDeleted  EventType = "session_deleted"
	EventMessageAppended EventType = "message_appended"
	EventTurnFailed      EventType = "turn_failed"
	EventTurnCancelled   EventType = "turn_cancelled"
)

// Event records something that happened to a session.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
