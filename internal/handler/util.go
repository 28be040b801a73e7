// Package handler serves the career assistant HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/chat"
	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/llm"
	"github.com/karierin/career-assistant/internal/middleware"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/service"
	"github.com/karierin/career-assistant/internal/store"
	"github.com/karierin/career-assistant/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error       string         `json:"error"`
	Notice      *model.Notice  `json:"notice,omitempty"`
	UserMessage *model.Message `json:"user_message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with a destructive notice.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &errorResponse{
		Error:  message,
		Notice: model.ErrorNotice(message),
	})
}

// decodeJSON reads a JSON body into v. An empty body is accepted when
// optional is set.
func decodeJSON(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	return err
}

// failure describes how an error is reported to the client.
type failure struct {
	status  int
	message string
}

// classify maps a domain error to a status and a user-facing message.
// fallback is used for store and other internal failures.
func classify(err error, fallback string) failure {
	var llmErr *llm.Error
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return failure{http.StatusBadRequest, "Message cannot be empty."}
	case errors.Is(err, service.ErrInvalidTitle):
		return failure{http.StatusBadRequest, err.Error()}
	case errors.Is(err, chat.ErrTurnInFlight):
		return failure{http.StatusConflict, err.Error()}
	case errors.Is(err, chat.ErrTurnCancelled):
		return failure{http.StatusConflict, "The reply was cancelled."}
	case errors.Is(err, store.ErrNotFound):
		return failure{http.StatusNotFound, "Session not found."}
	case errors.As(err, &llmErr):
		return failure{http.StatusBadGateway, llm.UserFacingMessage}
	default:
		return failure{http.StatusInternalServerError, fallback}
	}
}

// writeFailure logs err when it is a server-side problem and writes the
// mapped error response.
func writeFailure(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error, fallback string) {
	f := classify(err, fallback)
	if f.status >= http.StatusInternalServerError {
		log.Error(fallback,
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, f.status, f.message)
}

// requireIdentity returns the signed-in identity or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not signed in.")
	}
	return id, ok
}
