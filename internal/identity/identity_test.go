package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := NewContext(context.Background(), Identity{UserID: "u1", DisplayName: "Ana"})

	id, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if id.UserID != "u1" || id.DisplayName != "Ana" {
		t.Errorf("unexpected identity: %+v", id)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no identity in empty context")
	}
	if _, ok := FromContext(NewContext(context.Background(), Identity{})); ok {
		t.Error("expected identity without user id to be rejected")
	}
}

func TestSignOutRevokesUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRevoker()
	r.now = func() time.Time { return now }

	id := Identity{UserID: "u1", TokenID: "tok-1", ExpiresAt: now.Add(time.Hour)}
	if err := id.SignOut(context.Background(), r); err != nil {
		t.Fatalf("SignOut error: %v", err)
	}

	if !r.IsRevoked("tok-1") {
		t.Error("expected token to be revoked")
	}
	if r.IsRevoked("tok-2") {
		t.Error("unrelated token should not be revoked")
	}

	now = now.Add(2 * time.Hour)
	if r.IsRevoked("tok-1") {
		t.Error("expired revocation should be dropped")
	}
}

func TestSignOutErrors(t *testing.T) {
	r := NewRevoker()

	if err := (Identity{}).SignOut(context.Background(), r); !errors.Is(err, ErrAnonymous) {
		t.Errorf("expected ErrAnonymous, got %v", err)
	}
	if err := (Identity{UserID: "u1"}).SignOut(context.Background(), r); err == nil {
		t.Error("expected error for token without id")
	}
}
