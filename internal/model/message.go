package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents one message of a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the response after a completed turn.
type SendMessageResponse struct {
	UserMessage      *Message     `json:"user_message"`
	AssistantMessage *Message     `json:"assistant_message,omitempty"`
	Session          *ChatSession `json:"session,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// TurnStateResponse reports the turn state of a session.
type TurnStateResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// ErrorEvent represents an error sent over a stream.
type ErrorEvent struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Notice  *Notice `json:"notice,omitempty"`
}
