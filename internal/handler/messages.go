package handler

import (
	"net/http"

	"github.com/karierin/career-assistant/internal/chat"
	"github.com/karierin/career-assistant/internal/middleware"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/service"
	"github.com/karierin/career-assistant/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	messages *service.MessageService
	engine   *chat.Engine
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(messages *service.MessageService, engine *chat.Engine, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		engine:   engine,
		logger:   log,
	}
}

// List handles GET /api/v1/sessions/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	messages, err := h.messages.List(r.Context(), id, sessionID)
	if err != nil {
		writeFailure(w, r, h.logger, err, "Failed to load messages. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: messages,
		Total:    len(messages),
	})
}

// Send handles POST /api/v1/sessions/:id/messages. It runs one full turn
// and answers with both stored messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.engine.Submit(r.Context(), id, sessionID, req.Content, nil)
	if err != nil {
		f := classify(err, "Failed to send message. Please try again.")
		if f.status >= http.StatusInternalServerError && f.status != http.StatusBadGateway {
			writeFailure(w, r, h.logger, err, f.message)
			return
		}
		resp := &errorResponse{
			Error:  f.message,
			Notice: model.ErrorNotice(f.message),
		}
		if result != nil {
			resp.UserMessage = result.UserMessage
		}
		writeJSON(w, f.status, resp)
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		UserMessage:      result.UserMessage,
		AssistantMessage: result.AssistantMessage,
		Session:          result.Session,
	})
}

// TurnState handles GET /api/v1/sessions/:id/turn
func (h *MessageHandler) TurnState(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	if _, err := h.messages.Count(r.Context(), id, sessionID); err != nil {
		writeFailure(w, r, h.logger, err, "Failed to load session.")
		return
	}

	writeJSON(w, http.StatusOK, &model.TurnStateResponse{
		SessionID: sessionID,
		State:     string(h.engine.State(sessionID)),
	})
}
