package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/dashboard"
	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/pkg/logger"
)

// AuthHandler serves the signed-in user's profile and sign-out.
type AuthHandler struct {
	revoker    *identity.Revoker
	dashboards *dashboard.Registry
	logger     *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(revoker *identity.Revoker, dashboards *dashboard.Registry, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		revoker:    revoker,
		dashboards: dashboards,
		logger:     log,
	}
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := id.SignOut(r.Context(), h.revoker); err != nil {
		h.logger.Warn("sign out failed", zap.String("user_id", id.UserID), zap.Error(err))
		writeError(w, http.StatusBadRequest, "This token cannot be signed out.")
		return
	}
	h.dashboards.Forget(id.UserID)

	writeJSON(w, http.StatusOK, map[string]*model.Notice{
		"notice": model.InfoNotice("Signed Out", "You have been logged out successfully."),
	})
}
