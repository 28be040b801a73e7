package handler

import (
	"net/http"

	"github.com/karierin/career-assistant/internal/dashboard"
	"github.com/karierin/career-assistant/internal/middleware"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/pkg/logger"
)

// dashboardResponse is the session list with the active session resolved.
type dashboardResponse struct {
	Sessions        []model.ChatSession `json:"sessions"`
	ActiveSessionID string              `json:"active_session_id,omitempty"`
	Active          *model.ChatSession  `json:"active,omitempty"`
	Notice          *model.Notice       `json:"notice,omitempty"`
}

func newDashboardResponse(v dashboard.View) *dashboardResponse {
	return &dashboardResponse{
		Sessions:        v.Sessions,
		ActiveSessionID: v.ActiveSessionID,
		Active:          v.Active(),
	}
}

// DashboardHandler serves the signed-in user's session list state.
type DashboardHandler struct {
	dashboards *dashboard.Registry
	logger     *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dashboards *dashboard.Registry, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, logger: log}
}

// Get handles GET /api/v1/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	d, err := h.dashboards.For(r.Context(), id)
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to load chat sessions.")
		return
	}

	writeJSON(w, http.StatusOK, newDashboardResponse(d.Snapshot()))
}

// Select handles PUT /api/v1/dashboard/active
func (h *DashboardHandler) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req model.SelectSessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateSessionID(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.dashboards.For(r.Context(), id)
	if err == nil {
		err = d.Select(req.SessionID)
	}
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to select session.")
		return
	}

	writeJSON(w, http.StatusOK, newDashboardResponse(d.Snapshot()))
}

// Suggestions handles GET /api/v1/suggestions
func (h *DashboardHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"suggestions": model.Suggestions,
	})
}
