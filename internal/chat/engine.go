// Package chat runs conversation turns: the user's message, the assistant's
// reply, and the session bookkeeping in between.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/karierin/career-assistant/internal/identity"
	"github.com/karierin/career-assistant/internal/llm"
	"github.com/karierin/career-assistant/internal/model"
	"github.com/karierin/career-assistant/internal/service"
	"github.com/karierin/career-assistant/pkg/logger"
	"github.com/karierin/career-assistant/pkg/metrics"
)

var (
	// ErrEmptyMessage is returned for blank submissions. Nothing is written.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTurnInFlight is returned when the session already has a turn running.
	ErrTurnInFlight = errors.New("a reply is already in progress for this session")
	// ErrTurnCancelled is returned when the turn was cancelled before the reply was stored.
	ErrTurnCancelled = errors.New("turn cancelled")
)

// State is the turn state of a session.
type State string

const (
	StateIdle          State = "idle"
	StateSending       State = "sending"
	StateAwaitingReply State = "awaiting_reply"
	StateFailed        State = "failed"
)

// TurnResult holds what a turn persisted. On failure it carries whatever was
// stored before the failure.
type TurnResult struct {
	UserMessage      *model.Message
	AssistantMessage *model.Message
	Session          *model.ChatSession
}

// Notifier is told when a turn changed a session's title or ordering.
type Notifier interface {
	SessionUpdated(ctx context.Context, id identity.Identity, session *model.ChatSession)
}

// Hooks observe a single turn. Any field may be nil.
type Hooks struct {
	OnState            func(State)
	OnUserMessage      func(*model.Message)
	OnSessionUpdate    func(*model.ChatSession)
	OnAssistantMessage func(*model.Message)
}

func (h *Hooks) state(s State) {
	if h != nil && h.OnState != nil {
		h.OnState(s)
	}
}

func (h *Hooks) userMessage(m *model.Message) {
	if h != nil && h.OnUserMessage != nil {
		h.OnUserMessage(m)
	}
}

func (h *Hooks) sessionUpdate(s *model.ChatSession) {
	if h != nil && h.OnSessionUpdate != nil {
		h.OnSessionUpdate(s)
	}
}

func (h *Hooks) assistantMessage(m *model.Message) {
	if h != nil && h.OnAssistantMessage != nil {
		h.OnAssistantMessage(m)
	}
}

type turn struct {
	state  State
	cancel context.CancelFunc
}

// Engine drives conversation turns. At most one turn runs per session.
type Engine struct {
	sessions *service.SessionService
	messages *service.MessageService
	asker    llm.Asker
	notifier Notifier
	events   service.Publisher
	logger   *logger.Logger

	mu    sync.Mutex
	turns map[string]*turn
}

// Config wires an Engine.
type Config struct {
	Sessions *service.SessionService
	Messages *service.MessageService
	Asker    llm.Asker
	Notifier Notifier
	Events   service.Publisher
	Logger   *logger.Logger
}

// NewEngine creates a turn engine.
func NewEngine(cfg Config) *Engine {
	events := cfg.Events
	if events == nil {
		events = service.NopPublisher{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Global()
	}
	return &Engine{
		sessions: cfg.Sessions,
		messages: cfg.Messages,
		asker:    cfg.Asker,
		notifier: cfg.Notifier,
		events:   events,
		logger:   log,
		turns:    make(map[string]*turn),
	}
}

// State returns the current turn state of a session.
func (e *Engine) State(sessionID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.turns[sessionID]; ok {
		return t.state
	}
	return StateIdle
}

// Cancel aborts the session's running turn, if any. The turn will not store
// an assistant reply.
func (e *Engine) Cancel(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.turns[sessionID]
	if !ok {
		return false
	}
	t.cancel()
	return true
}

// Submit runs one turn: store the user's message, title the session on its
// first turn, ask for a reply and store it.
func (e *Engine) Submit(ctx context.Context, id identity.Identity, sessionID, text string, hooks *Hooks) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	// Ownership is checked before the turn slot is claimed, so a foreign
	// session id never observes or blocks the owner's turn.
	session, err := e.sessions.Get(ctx, id, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, t, err := e.begin(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer e.end(sessionID, hooks)

	ctx, span := otel.Tracer("chat").Start(ctx, "chat.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("provider", e.asker.Name()),
	)

	log := e.logger.WithSession(id.UserID, sessionID)
	result := &TurnResult{}

	fail := func(err error) (*TurnResult, error) {
		if ctx.Err() != nil {
			return e.cancelled(ctx, id, sessionID, result, log)
		}

		e.setState(sessionID, t, StateFailed, hooks)
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		metrics.RecordTurn("failed")

		var llmErr *llm.Error
		if errors.As(err, &llmErr) {
			log.Error("inference failed", zap.String("cause", llmErr.Cause()))
		} else {
			log.Error("turn failed", zap.Error(err))
		}

		e.publish(context.WithoutCancel(ctx), id, sessionID, model.EventTurnFailed, err.Error())
		return result, err
	}

	e.setState(sessionID, t, StateSending, hooks)

	prior, err := e.messages.Count(ctx, id, sessionID)
	if err != nil {
		return fail(err)
	}

	userMsg, err := e.messages.Append(ctx, id, sessionID, model.RoleUser, text)
	if err != nil {
		return fail(err)
	}
	result.UserMessage = userMsg
	result.Session = session
	hooks.userMessage(userMsg)

	if prior == 0 && session.HasDefaultTitle() {
		session, err = e.sessions.Rename(ctx, id, sessionID, DeriveTitle(text))
		if err != nil {
			return fail(err)
		}
		result.Session = session
		e.sessionUpdated(ctx, id, session, hooks)
	}

	e.setState(sessionID, t, StateAwaitingReply, hooks)

	start := time.Now()
	reply, err := e.asker.Ask(ctx, llm.Question{
		Message:   text,
		UserID:    id.UserID,
		SessionID: sessionID,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordInference(e.asker.Name(), status, time.Since(start).Seconds())
	if err != nil {
		return fail(err)
	}
	if ctx.Err() != nil {
		return e.cancelled(ctx, id, sessionID, result, log)
	}

	assistantMsg, err := e.messages.Append(ctx, id, sessionID, model.RoleAssistant, reply)
	if err != nil {
		return fail(err)
	}
	result.AssistantMessage = assistantMsg
	hooks.assistantMessage(assistantMsg)

	if refreshed, err := e.sessions.Get(ctx, id, sessionID); err == nil {
		result.Session = refreshed
	}
	e.sessionUpdated(ctx, id, result.Session, hooks)

	metrics.RecordTurn("success")
	log.Info("turn completed",
		zap.String("user_message_id", userMsg.ID),
		zap.String("assistant_message_id", assistantMsg.ID),
		zap.Duration("inference", time.Since(start)),
	)

	return result, nil
}

func (e *Engine) begin(ctx context.Context, sessionID string) (context.Context, *turn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.turns[sessionID]; busy {
		return nil, nil, ErrTurnInFlight
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &turn{state: StateIdle, cancel: cancel}
	e.turns[sessionID] = t
	metrics.TurnsInFlight.Inc()

	return ctx, t, nil
}

func (e *Engine) end(sessionID string, hooks *Hooks) {
	e.mu.Lock()
	if t, ok := e.turns[sessionID]; ok {
		t.cancel()
		delete(e.turns, sessionID)
	}
	e.mu.Unlock()

	metrics.TurnsInFlight.Dec()
	hooks.state(StateIdle)
}

func (e *Engine) setState(sessionID string, t *turn, s State, hooks *Hooks) {
	e.mu.Lock()
	t.state = s
	e.mu.Unlock()

	hooks.state(s)
}

func (e *Engine) cancelled(ctx context.Context, id identity.Identity, sessionID string, result *TurnResult, log *logger.Logger) (*TurnResult, error) {
	metrics.RecordTurn("cancelled")
	log.Info("turn cancelled", zap.Error(context.Cause(ctx)))
	e.publish(context.WithoutCancel(ctx), id, sessionID, model.EventTurnCancelled, "")
	return result, ErrTurnCancelled
}

func (e *Engine) sessionUpdated(ctx context.Context, id identity.Identity, session *model.ChatSession, hooks *Hooks) {
	hooks.sessionUpdate(session)
	if e.notifier != nil {
		e.notifier.SessionUpdated(ctx, id, session)
	}
}

func (e *Engine) publish(ctx context.Context, id identity.Identity, sessionID string, typ model.EventType, reason string) {
	if err := e.events.PublishEvent(ctx, &model.Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      typ,
		UserID:    id.UserID,
		SessionID: sessionID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}); err != nil {
		metrics.EventsPublishFailures.Inc()
		e.logger.Warn("failed to publish event", zap.String("type", string(typ)), zap.Error(err))
	}
}
