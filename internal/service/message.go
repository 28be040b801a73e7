package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/store"
	"github.com/karierin/career-assistant/pkg/logger"
	"github.com/karierin/career-assistant/pkg/metrics"
)

// MessageService handles message operations.
type MessageService struct {
	store    store.Store
	sessions *SessionService
	events   Publisher
	logger   *logger.Logger
	now      func() time.Time
}

// NewMessageService creates a new message service.
func NewMessageService(st store.Store, sessions *SessionService, events Publisher, log *logger.Logger) *MessageService {
	if events == nil {
		events = NopPublisher{}
	}
	return &MessageService{
		store:    st,
		sessions: sessions,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// List returns the session's messages in conversation order.
func (s *MessageService) List(ctx context.Context, id identity.Identity, sessionID string) ([]model.Message, error) {
	if _, err := s.sessions.Get(ctx, id, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, sessionID)
}

// Count returns the number of messages in the session.
func (s *MessageService) Count(ctx context.Context, id identity.Identity, sessionID string) (int, error) {
	if _, err := s.sessions.Get(ctx, id, sessionID); err != nil {
		return 0, err
	}
	return s.store.CountMessages(ctx, sessionID)
}

// Append stores a message and bumps the session's updated_at.
func (s *MessageService) Append(ctx context.Context, id identity.Identity, sessionID string, role model.Role, content string) (*model.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	if _, err := s.sessions.Get(ctx, id, sessionID); err != nil {
		return nil, err
	}

	msg, err := s.store.AppendMessage(ctx, &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		UserID:    id.UserID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesTotal.WithLabelValues(string(role)).Inc()
	publishEvent(ctx, s.events, s.logger, &model.Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      model.EventMessageAppended,
		UserID:    id.UserID,
		SessionID: sessionID,
		MessageID: msg.ID,
		CreatedAt: msg.CreatedAt,
	})

	return msg, nil
}
