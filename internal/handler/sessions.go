package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/dashboard"
	"github.com/karierin/career-assistant/internal/middleware"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/service"
	"github.com/karierin/career-assistant/pkg/logger"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	dashboards *dashboard.Registry
	sessions   *service.SessionService
	logger     *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(dashboards *dashboard.Registry, sessions *service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		dashboards: dashboards,
		sessions:   sessions,
		logger:     log,
	}
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	d, err := h.dashboards.For(r.Context(), id)
	if err == nil {
		err = d.Refresh(r.Context())
	}
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to load chat sessions.")
		return
	}

	v := d.Snapshot()
	writeJSON(w, http.StatusOK, &model.ListSessionsResponse{
		Sessions:        v.Sessions,
		ActiveSessionID: v.ActiveSessionID,
		Total:           len(v.Sessions),
	})
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req model.CreateSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.dashboards.For(r.Context(), id)
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to create new session.")
		return
	}

	session, err := d.NewSession(r.Context(), req.Title)
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to create new session.")
		return
	}

	writeJSON(w, http.StatusCreated, &model.SessionResponse{
		Session: session,
		Notice:  model.InfoNotice("New Session Created", "Start a new career conversation!"),
	})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Get(r.Context(), id, sessionID)
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to load session.")
		return
	}

	writeJSON(w, http.StatusOK, &model.SessionResponse{Session: session})
}

// Rename handles PUT /api/v1/sessions/:id
func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	var req model.RenameSessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.Rename(r.Context(), id, sessionID, req.Title)
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to rename session.")
		return
	}
	h.dashboards.SessionUpdated(r.Context(), id, session)

	writeJSON(w, http.StatusOK, &model.SessionResponse{Session: session})
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	d, err := h.dashboards.For(r.Context(), id)
	if err == nil {
		err = d.Delete(r.Context(), sessionID)
	}
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to delete session.")
		return
	}

	v := d.Snapshot()
	h.logger.Debug("session deleted",
		zap.String("session_id", sessionID),
		zap.String("active_session_id", v.ActiveSessionID),
	)

	resp := newDashboardResponse(v)
	resp.Notice = model.InfoNotice("Session Deleted", "Chat session has been removed.")
	writeJSON(w, http.StatusOK, resp)
}

// sessionParam returns the validated {id} URL parameter or writes a 400.
func sessionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return sessionID, true
}
