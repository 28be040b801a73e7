// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/karierin/career-assistant/internal/identity"
)

// Claims represents the JWT claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Identity converts the claims to the identity carried through a request.
func (c *Claims) Identity() identity.Identity {
	id := identity.Identity{
		UserID:      c.Subject,
		DisplayName: c.Name,
		AvatarURL:   c.Picture,
		TokenID:     c.ID,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

// Auth creates JWT authentication middleware. Tokens revoked through
// revoker are rejected; revoker may be nil.
func Auth(jwtSecret string, revoker *identity.Revoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid || claims.Subject == "" {
				unauthorized(w, "invalid token")
				return
			}

			if revoker != nil && claims.ID != "" && revoker.IsRevoked(claims.ID) {
				unauthorized(w, "token has been revoked")
				return
			}

			setRequestUser(r.Context(), claims.Subject)
			ctx := identity.NewContext(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID gets the signed-in user id from the request context.
func GetUserID(r *http.Request) string {
	if id, ok := identity.FromContext(r.Context()); ok {
		return id.UserID
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="karierin"`)
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
