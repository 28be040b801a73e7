package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/karierin/career-assistant/internal/model"
)

// Memory is an in-process Store. It is used for development and tests.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*model.ChatSession
	messages map[string][]model.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*model.ChatSession),
		messages: make(map[string][]model.Message),
	}
}

// ListSessions returns the user's sessions ordered by updated_at descending.
func (m *Memory) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]model.ChatSession, 0)
	for _, s := range m.sessions {
		if s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
		}
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})

	return sessions, nil
}

// CreateSession stores a copy of session.
func (m *Memory) CreateSession(ctx context.Context, session *model.ChatSession) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return nil, wrap("create session", errDuplicate)
	}

	stored := *session
	m.sessions[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetSession returns the session by ID.
func (m *Memory) GetSession(ctx context.Context, sessionID string) (*model.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[sessionID]
	if !exists {
		return nil, wrap("get session", ErrNotFound)
	}

	out := *s
	return &out, nil
}

// RenameSession sets the title and updated_at of a session.
func (m *Memory) RenameSession(ctx context.Context, sessionID, title string, at time.Time) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[sessionID]
	if !exists {
		return nil, wrap("rename session", ErrNotFound)
	}

	s.Title = title
	touch(s, at)

	out := *s
	return &out, nil
}

// DeleteSession removes the session and cascades to its messages.
func (m *Memory) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return wrap("delete session", ErrNotFound)
	}

	delete(m.sessions, sessionID)
	delete(m.messages, sessionID)
	return nil
}

// ListMessages returns the session's messages in insertion order, which is
// creation order because AppendMessage never moves time backwards.
func (m *Memory) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return nil, wrap("list messages", ErrNotFound)
	}

	msgs := make([]model.Message, len(m.messages[sessionID]))
	copy(msgs, m.messages[sessionID])
	return msgs, nil
}

// CountMessages returns the number of messages in the session.
func (m *Memory) CountMessages(ctx context.Context, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return 0, wrap("count messages", ErrNotFound)
	}
	return len(m.messages[sessionID]), nil
}

// AppendMessage appends msg and bumps the session's updated_at in one step.
func (m *Memory) AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[msg.SessionID]
	if !exists {
		return nil, wrap("append message", ErrNotFound)
	}

	stored := *msg
	existing := m.messages[msg.SessionID]
	if n := len(existing); n > 0 && stored.CreatedAt.Before(existing[n-1].CreatedAt) {
		stored.CreatedAt = existing[n-1].CreatedAt
	}
	m.messages[msg.SessionID] = append(existing, stored)
	touch(s, stored.CreatedAt)

	out := stored
	return &out, nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// touch moves updated_at forward, never backward.
func touch(s *model.ChatSession, at time.Time) {
	if at.After(s.UpdatedAt) {
		s.UpdatedAt = at
	}
}
