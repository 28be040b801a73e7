// Package identity carries the signed-in user through the request path.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAnonymous is returned when no identity is present.
var ErrAnonymous = errors.New("identity: not signed in")

// Identity is the signed-in user as asserted by the identity provider.
type Identity struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	TokenID     string    `json:"-"`
	ExpiresAt   time.Time `json:"-"`
}

// Valid reports whether the identity names a user.
func (i Identity) Valid() bool {
	return i.UserID != ""
}

// SignOut revokes the token this identity was issued with.
func (i Identity) SignOut(ctx context.Context, r *Revoker) error {
	if !i.Valid() {
		return ErrAnonymous
	}
	if i.TokenID == "" {
		return errors.New("identity: token has no id, cannot revoke")
	}
	r.Revoke(i.TokenID, i.ExpiresAt)
	return nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.Valid()
}

// Revoker keeps a denylist of signed-out token ids until they expire.
type Revoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewRevoker creates an empty revocation list.
func NewRevoker() *Revoker {
	return &Revoker{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke denylists tokenID until expiresAt. A zero expiry keeps it for a day.
func (r *Revoker) Revoke(tokenID string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if expiresAt.IsZero() {
		expiresAt = r.now().Add(24 * time.Hour)
	}
	r.revoked[tokenID] = expiresAt
	r.sweepLocked()
}

// IsRevoked reports whether tokenID has been signed out.
func (r *Revoker) IsRevoked(tokenID string) bool {
	if tokenID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	if !ok {
		return false
	}
	if !r.now().Before(exp) {
		delete(r.revoked, tokenID)
		return false
	}
	return true
}

func (r *Revoker) sweepLocked() {
	now := r.now()
	for id, exp := range r.revoked {
		if !now.Before(exp) {
			delete(r.revoked, id)
		}
	}
}
