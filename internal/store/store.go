// Package store persists chat sessions and their messages.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/karierin/career-assistant/internal/model"
)

// ErrNotFound is wrapped by Error when a row does not exist.
var ErrNotFound = errors.New("not found")

var errDuplicate = errors.New("duplicate id")

// Error is returned for any persistence read or write failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store is the persistence contract for sessions and messages.
type Store interface {
	// ListSessions returns the user's sessions, most recently updated first.
	ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error)
	CreateSession(ctx context.Context, session *model.ChatSession) (*model.ChatSession, error)
	GetSession(ctx context.Context, sessionID string) (*model.ChatSession, error)
	// RenameSession sets the title and refreshes updated_at.
	RenameSession(ctx context.Context, sessionID, title string, at time.Time) (*model.ChatSession, error)
	// DeleteSession removes the session together with its messages.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListMessages returns messages in conversation order.
	ListMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
	// AppendMessage inserts msg and bumps the parent session's updated_at
	// as one atomic write.
	AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error)

	Ping(ctx context.Context) error
	Close() error
}
