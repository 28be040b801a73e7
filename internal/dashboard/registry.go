package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/pkg/logger"
)

// Registry holds one dashboard per signed-in user.
type Registry struct {
	sessions Sessions
	turns    Canceller
	logger   *logger.Logger

	mu         sync.Mutex
	dashboards map[string]*Dashboard
}

// NewRegistry creates an empty registry.
func NewRegistry(sessions Sessions, turns Canceller, log *logger.Logger) *Registry {
	return &Registry{
		sessions:   sessions,
		turns:      turns,
		logger:     log,
		dashboards: make(map[string]*Dashboard),
	}
}

// SetCanceller sets the turn canceller used by dashboards created afterwards.
func (r *Registry) SetCanceller(turns Canceller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = turns
}

// For returns the user's dashboard, creating and loading it the first time
// the identity is seen. A failed first load is retried on the next call.
func (r *Registry) For(ctx context.Context, id identity.Identity) (*Dashboard, error) {
	r.mu.Lock()
	d, ok := r.dashboards[id.UserID]
	turns := r.turns
	r.mu.Unlock()
	if ok {
		return d, nil
	}

	d = New(id, r.sessions, turns, r.logger)
	if err := d.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.dashboards[id.UserID]; ok {
		return existing, nil
	}
	r.dashboards[id.UserID] = d
	return d, nil
}

// Forget drops the user's dashboard, for example on sign-out.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dashboards, userID)
}

// SessionUpdated refreshes the owner's dashboard after a turn changed a session.
func (r *Registry) SessionUpdated(ctx context.Context, id identity.Identity, session *model.ChatSession) {
	r.mu.Lock()
	d, ok := r.dashboards[id.UserID]
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := d.Refresh(context.WithoutCancel(ctx)); err != nil {
		r.logger.Warn("failed to refresh dashboard",
			zap.String("user_id", id.UserID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}
