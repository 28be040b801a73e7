// Package dashboard keeps each user's session list and active session in
// step with the store.
package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/service"
	"github.com/karierin/career-assistant/internal/store"
	"github.com/karierin/career-assistant/pkg/logger"
)

// Sessions is the part of the session service a dashboard needs.
type Sessions interface {
	List(ctx context.Context, id identity.Identity) ([]model.ChatSession, error)
	Create(ctx context.Context, id identity.Identity, title string) (*model.ChatSession, error)
	Delete(ctx context.Context, id identity.Identity, sessionID string) error
}

var _ Sessions = (*service.SessionService)(nil)

// Canceller aborts a session's running turn.
type Canceller interface {
	Cancel(sessionID string) bool
}

// View is a snapshot of a dashboard.
type View struct {
	Sessions        []model.ChatSession `json:"sessions"`
	ActiveSessionID string              `json:"active_session_id,omitempty"`
}

// Active returns the active session of the view, or nil.
func (v View) Active() *model.ChatSession {
	for i := range v.Sessions {
		if v.Sessions[i].ID == v.ActiveSessionID {
			return &v.Sessions[i]
		}
	}
	return nil
}

// Dashboard is one user's session list.
type Dashboard struct {
	id       identity.Identity
	sessions Sessions
	turns    Canceller
	logger   *logger.Logger

	mu       sync.Mutex
	list     []model.ChatSession
	activeID string
}

// New creates an empty dashboard for id. Call Load before use.
func New(id identity.Identity, sessions Sessions, turns Canceller, log *logger.Logger) *Dashboard {
	return &Dashboard{
		id:       id,
		sessions: sessions,
		turns:    turns,
		logger:   log,
	}
}

// Load reloads the session list. When no session is active, or the active one
// is gone, the most recently updated session becomes active.
func (d *Dashboard) Load(ctx context.Context) error {
	list, err := d.sessions.List(ctx, d.id)
	if err != nil {
		d.logger.Error("failed to load sessions", zap.String("user_id", d.id.UserID), zap.Error(err))
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.list = list
	if indexOf(d.list, d.activeID) < 0 {
		d.activeID = ""
		if len(d.list) > 0 {
			d.activeID = d.list[0].ID
		}
	}
	return nil
}

// Refresh reloads the list after a session changed elsewhere.
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.Load(ctx)
}

// NewSession creates a session, puts it first and makes it active.
func (d *Dashboard) NewSession(ctx context.Context, title string) (*model.ChatSession, error) {
	session, err := d.sessions.Create(ctx, d.id, title)
	if err != nil {
		d.logger.Error("failed to create session", zap.String("user_id", d.id.UserID), zap.Error(err))
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.list = append([]model.ChatSession{*session}, d.list...)
	d.activeID = session.ID
	return session, nil
}

// Delete removes a session, then cancels its running turn, if any. The
// turn is left alone when the delete fails, so a foreign session id cannot
// cancel someone else's turn. Deleting the active session activates the next remaining one.
func (d *Dashboard) Delete(ctx context.Context, sessionID string) error {
	if err := d.sessions.Delete(ctx, d.id, sessionID); err != nil {
		d.logger.Error("failed to delete session",
			zap.String("user_id", d.id.UserID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return err
	}
	if d.turns != nil {
		d.turns.Cancel(sessionID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if i := indexOf(d.list, sessionID); i >= 0 {
		d.list = append(d.list[:i:i], d.list[i+1:]...)
	}
	if d.activeID == sessionID {
		d.activeID = ""
		if len(d.list) > 0 {
			d.activeID = d.list[0].ID
		}
	}
	return nil
}

// Select makes sessionID the active session.
func (d *Dashboard) Select(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if indexOf(d.list, sessionID) < 0 {
		return &store.Error{Op: "select session", Err: store.ErrNotFound}
	}
	d.activeID = sessionID
	return nil
}

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := make([]model.ChatSession, len(d.list))
	copy(list, d.list)
	return View{Sessions: list, ActiveSessionID: d.activeID}
}

func indexOf(list []model.ChatSession, id string) int {
	if id == "" {
		return -1
	}
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
