package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/theLastOfCats/cinemate-admin/internal/auth"
)

type contextKey string

const SessionKey contextKey = "session"

type Middleware struct {
	Signer   *auth.Signer
	Sessions *auth.Sessions
}

func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			JSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			JSONError(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := m.Signer.Validate(parts[1])
		if err != nil {
			JSONError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// A valid token may outlive its session (logout, restart).
		sess, ok := m.Sessions.Get(claims.ID)
		if !ok {
			log.Printf("AuthMiddleware: session of user %d not found", claims.UserID)
			JSONError(w, "Session expired", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects sessions without the administrator capability.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r)
		if !ok || !sess.IsAdmin {
			JSONError(w, "Administrator role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Protect chains authentication and the admin check.
func (m *Middleware) Protect(h http.HandlerFunc) http.Handler {
	return m.AuthMiddleware(m.RequireAdmin(h))
}

func GetSession(r *http.Request) (*auth.Session, bool) {
	sess, ok := r.Context().Value(SessionKey).(*auth.Session)
	return sess, ok
}
