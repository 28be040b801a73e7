package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/karierin/career-assistant/internal/model"
)

// newTestPostgres connects to DATABASE_URL, skipping the test when unset.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := NewPostgres(ctx, PostgresConfig{URL: url, MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("NewPostgres error: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("uuid: %v", err)
	}
	return id.String()
}

func TestPostgresListSessionsOrderedByUpdatedAt(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	userID := "pg-" + newID(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ids := []string{newID(t), newID(t), newID(t)}
	for i, id := range ids {
		if _, err := p.CreateSession(ctx, newSession(id, userID, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("CreateSession(%d) error: %v", i, err)
		}
		t.Cleanup(func() { p.DeleteSession(context.Background(), id) })
	}

	// Appending to the oldest session makes it the most recent.
	if _, err := p.AppendMessage(ctx, &model.Message{
		ID: newID(t), SessionID: ids[0], UserID: userID, Role: model.RoleUser, Content: "hi",
		CreatedAt: base.Add(10 * time.Minute),
	}); err != nil {
		t.Fatalf("AppendMessage error: %v", err)
	}

	sessions, err := p.ListSessions(ctx, userID)
	if err != nil {
		t.Fatalf("ListSessions error: %v", err)
	}

	want := []string{ids[0], ids[2], ids[1]}
	if len(sessions) != len(want) {
		t.Fatalf("expected %d sessions, got %d", len(want), len(sessions))
	}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Errorf("sessions[%d] = %s, want %s", i, sessions[i].ID, id)
		}
	}
}

func TestPostgresAppendPreservesOrderAndCount(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	userID := "pg-" + newID(t)
	sessionID := newID(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, err := p.CreateSession(ctx, newSession(sessionID, userID, base)); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	t.Cleanup(func() { p.DeleteSession(context.Background(), sessionID) })

	offsets := []time.Duration{time.Second, 3 * time.Second, 2 * time.Second, 5 * time.Second}
	ids := make([]string, len(offsets))
	for i, off := range offsets {
		ids[i] = newID(t)
		if _, err := p.AppendMessage(ctx, &model.Message{
			ID:        ids[i],
			SessionID: sessionID,
			UserID:    userID,
			Role:      model.RoleUser,
			Content:   fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(off),
		}); err != nil {
			t.Fatalf("AppendMessage(%d) error: %v", i, err)
		}
	}

	msgs, err := p.ListMessages(ctx, sessionID)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if len(msgs) != len(offsets) {
		t.Fatalf("expected %d messages, got %d", len(offsets), len(msgs))
	}
	for i := range msgs {
		if msgs[i].ID != ids[i] {
			t.Errorf("msgs[%d].ID = %s, want %s", i, msgs[i].ID, ids[i])
		}
		if i > 0 && msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Errorf("message %d created before message %d", i, i-1)
		}
	}

	n, err := p.CountMessages(ctx, sessionID)
	if err != nil {
		t.Fatalf("CountMessages error: %v", err)
	}
	if n != len(offsets) {
		t.Errorf("CountMessages = %d, want %d", n, len(offsets))
	}
}

func TestPostgresAppendNeverMovesUpdatedAtBackwards(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	userID := "pg-" + newID(t)
	sessionID := newID(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, err := p.CreateSession(ctx, newSession(sessionID, userID, base)); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	t.Cleanup(func() { p.DeleteSession(context.Background(), sessionID) })

	before, err := p.RenameSession(ctx, sessionID, "Later", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("RenameSession error: %v", err)
	}
	if _, err := p.AppendMessage(ctx, &model.Message{
		ID: newID(t), SessionID: sessionID, UserID: userID, Role: model.RoleUser, Content: "x",
		CreatedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("AppendMessage error: %v", err)
	}
	after, err := p.GetSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSession error: %v", err)
	}

	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Errorf("updated_at moved backwards: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
	if after.Title != "Later" {
		t.Errorf("Title = %q, want Later", after.Title)
	}

	// An earlier rename keeps the later timestamp.
	renamed, err := p.RenameSession(ctx, sessionID, "Earlier", base)
	if err != nil {
		t.Fatalf("RenameSession error: %v", err)
	}
	if renamed.UpdatedAt.Before(after.UpdatedAt) {
		t.Errorf("rename moved updated_at backwards: %v -> %v", after.UpdatedAt, renamed.UpdatedAt)
	}
}

func TestPostgresDeleteCascadesMessages(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	userID := "pg-" + newID(t)
	sessionID := newID(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	if _, err := p.CreateSession(ctx, newSession(sessionID, userID, now)); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if _, err := p.AppendMessage(ctx, &model.Message{ID: newID(t), SessionID: sessionID, UserID: userID, Role: model.RoleUser, Content: "x", CreatedAt: now}); err != nil {
		t.Fatalf("AppendMessage error: %v", err)
	}

	if err := p.DeleteSession(ctx, sessionID); err != nil {
		t.Fatalf("DeleteSession error: %v", err)
	}

	n, err := p.CountMessages(ctx, sessionID)
	if err != nil {
		t.Fatalf("CountMessages error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected messages to be gone after delete, got %d", n)
	}
	if _, err := p.GetSession(ctx, sessionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession after delete: expected ErrNotFound, got %v", err)
	}
}

func TestPostgresMissingSessionReturnsStoreError(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	missing := newID(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"get", func() error { _, err := p.GetSession(ctx, missing); return err }},
		{"rename", func() error { _, err := p.RenameSession(ctx, missing, "t", time.Now()); return err }},
		{"delete", func() error { return p.DeleteSession(ctx, missing) }},
		{"append", func() error {
			_, err := p.AppendMessage(ctx, &model.Message{ID: newID(t), SessionID: missing, Role: model.RoleUser, Content: "x", CreatedAt: time.Now()})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var storeErr *Error
			if !errors.As(err, &storeErr) {
				t.Fatalf("expected *Error, got %T (%v)", err, err)
			}
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}
