// Package model defines data structures for the career assistant.
package model

import (
	"time"
)

// DefaultSessionTitle is the placeholder title of a session nobody has named yet.
const DefaultSessionTitle = "New Career Session"

// ChatSession represents a conversation thread owned by one user.
type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDefaultTitle reports whether the session still carries the placeholder title.
func (s *ChatSession) HasDefaultTitle() bool {
	return s.Title == DefaultSessionTitle
}

// CreateSessionRequest is the request to create a new session.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// RenameSessionRequest is the request to rename a session.
type RenameSessionRequest struct {
	Title string `json:"title"`
}

// SelectSessionRequest is the request to change the active session.
type SelectSessionRequest struct {
	SessionID string `json:"session_id"`
}

// SessionResponse wraps a session with an optional notice.
type SessionResponse struct {
	Session *ChatSession `json:"session"`
	Notice  *Notice      `json:"notice,omitempty"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions        []ChatSession `json:"sessions"`
	ActiveSessionID string        `json:"active_session_id,omitempty"`
	Total           int           `json:"total"`
}
