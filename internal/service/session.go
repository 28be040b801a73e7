// Package service provides business logic for chat sessions and messages.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/store"
	"github.com/karierin/career-assistant/pkg/logger"
	"github.com/karierin/career-assistant/pkg/metrics"
)

// MaxTitleLength is the longest title accepted, in runes.
const MaxTitleLength = 255

// ErrInvalidTitle is returned for empty or oversized titles.
var ErrInvalidTitle = errors.New("title must be 1-255 characters of valid UTF-8")

// Publisher receives session events. Publishing is best effort.
type Publisher interface {
	PublishEvent(ctx context.Context, event *model.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// PublishEvent does nothing.
func (NopPublisher) PublishEvent(context.Context, *model.Event) error { return nil }

// SessionService handles session operations.
type SessionService struct {
	store  store.Store
	events Publisher
	logger *logger.Logger
	now    func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(st store.Store, events Publisher, log *logger.Logger) *SessionService {
	if events == nil {
		events = NopPublisher{}
	}
	return &SessionService{
		store:  st,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// List returns the user's sessions, most recently updated first.
func (s *SessionService) List(ctx context.Context, id identity.Identity) ([]model.ChatSession, error) {
	return s.store.ListSessions(ctx, id.UserID)
}

// Create creates a session. An empty title becomes the default placeholder.
func (s *SessionService) Create(ctx context.Context, id identity.Identity, title string) (*model.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultSessionTitle
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	now := s.now()
	session, err := s.store.CreateSession(ctx, &model.ChatSession{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    id.UserID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionsCreatedTotal.Inc()
	s.publish(ctx, model.EventSessionCreated, session)

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", id.UserID),
	)

	return session, nil
}

// Get returns a session owned by the user.
func (s *SessionService) Get(ctx context.Context, id identity.Identity, sessionID string) (*model.ChatSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Foreign sessions are indistinguishable from missing ones.
	if session.UserID != id.UserID {
		return nil, &store.Error{Op: "get session", Err: store.ErrNotFound}
	}

	return session, nil
}

// Rename sets the title of a session owned by the user.
func (s *SessionService) Rename(ctx context.Context, id identity.Identity, sessionID, title string) (*model.ChatSession, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx, id, sessionID); err != nil {
		return nil, err
	}

	session, err := s.store.RenameSession(ctx, sessionID, title, s.now())
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.EventSessionRenamed, session)
	return session, nil
}

// Delete removes a session owned by the user together with its messages.
func (s *SessionService) Delete(ctx context.Context, id identity.Identity, sessionID string) error {
	session, err := s.Get(ctx, id, sessionID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	metrics.SessionsDeletedTotal.Inc()
	s.publish(ctx, model.EventSessionDeleted, session)

	s.logger.Info("session deleted",
		zap.String("session_id", sessionID),
		zap.String("user_id", id.UserID),
	)

	return nil
}

func (s *SessionService) publish(ctx context.Context, typ model.EventType, session *model.ChatSession) {
	publishEvent(ctx, s.events, s.logger, &model.Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      typ,
		UserID:    session.UserID,
		SessionID: session.ID,
		CreatedAt: s.now(),
	})
}

func publishEvent(ctx context.Context, events Publisher, log *logger.Logger, event *model.Event) {
	if err := events.PublishEvent(ctx, event); err != nil {
		metrics.EventsPublishFailures.Inc()
		log.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}

func validateTitle(title string) error {
	if title == "" || !utf8.ValidString(title) || utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	return nil
}
