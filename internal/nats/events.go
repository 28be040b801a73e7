package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/karierin/career-assistant/internal/model"
)

const (
	// StreamName is the name of the session events stream.
	StreamName = "KARIERIN_EVENTS"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "karierin"
)

// EventStream publishes session events to JetStream.
type EventStream struct {
	client *Client
}

// NewEventStream creates a new event stream.
func NewEventStream(client *Client) *EventStream {
	return &EventStream{client: client}
}

// EnsureStream creates the events stream if it does not exist yet.
func (s *EventStream) EnsureStream(ctx context.Context) error {
	js := s.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat session lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event.
func EventSubject(event *model.Event) string {
	return fmt.Sprintf("%s.%s.%s.%s",
		SubjectPrefix, token(event.UserID), token(event.SessionID), event.Type)
}

// PublishEvent publishes an event. The event id doubles as the JetStream
// message id so redelivered publishes are deduplicated.
func (s *EventStream) PublishEvent(ctx context.Context, event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := s.client.JetStream().Publish(ctx, EventSubject(event), data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
