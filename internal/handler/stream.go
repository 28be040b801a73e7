package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/chat"
	"github.com/karierin/career-assistant/internal/llm"
	"github.com/karierin/career-assistant/internal/middleware"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/store"
	"github.com/karierin/career-assistant/pkg/logger"
	"github.com/karierin/career-assistant/pkg/metrics"
)

// StreamHandler runs a turn and reports its progress as server-sent events.
type StreamHandler struct {
	engine *chat.Engine
	logger *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(engine *chat.Engine, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		engine: engine,
		logger: log,
	}
}

// stateEvent reports a turn state change.
type stateEvent struct {
	State chat.State `json:"state"`
}

// StreamWithMessage handles POST /api/v1/sessions/:id/stream
//
// Events, in order: state, user_message, session_updated, assistant_message,
// then done on success or error on failure. state events may appear between
// any of them.
func (h *StreamHandler) StreamWithMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	log := h.logger.WithSession(id.UserID, sessionID)
	send := func(event string, data interface{}) {
		if err := sendSSEEvent(w, flusher, event, data); err != nil {
			log.Debug("failed to write SSE event", zap.String("event", event), zap.Error(err))
		}
	}

	hooks := &chat.Hooks{
		OnState:            func(s chat.State) { send("state", &stateEvent{State: s}) },
		OnUserMessage:      func(m *model.Message) { send("user_message", m) },
		OnSessionUpdate:    func(s *model.ChatSession) { send("session_updated", s) },
		OnAssistantMessage: func(m *model.Message) { send("assistant_message", m) },
	}

	if _, err := h.engine.Submit(r.Context(), id, sessionID, req.Content, hooks); err != nil {
		f := classify(err, "Failed to send message. Please try again.")
		if f.status == http.StatusInternalServerError {
			log.Error("streamed turn failed", zap.Error(err))
		}
		send("error", &model.ErrorEvent{
			Code:    errorCode(err),
			Message: f.message,
			Notice:  model.ErrorNotice(f.message),
		})
		return
	}

	send("done", map[string]bool{"success": true})
}

// errorCode names err for stream clients.
func errorCode(err error) string {
	var llmErr *llm.Error
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, chat.ErrTurnInFlight):
		return "turn_in_flight"
	case errors.Is(err, chat.ErrTurnCancelled):
		return "turn_cancelled"
	case errors.Is(err, store.ErrNotFound):
		return "session_not_found"
	case errors.As(err, &llmErr):
		return "inference_failed"
	default:
		return "internal_error"
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
