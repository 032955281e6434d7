package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/theLastOfCats/cinemate-admin/internal/auth"
	"github.com/theLastOfCats/cinemate-admin/internal/catalog"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

type AuthHandler struct {
	Auth       auth.Authenticator
	Sessions   *auth.Sessions
	Signer     *auth.Signer
	Workspaces *catalog.Registry
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string     `json:"token"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	User        model.User `json:"user"`
	Collections []string   `json:"collections"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		JSONError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	sess, err := h.Auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		switch auth.OutcomeOf(err) {
		case auth.Forbidden, auth.Deactivated:
			status = http.StatusForbidden
		}
		JSONError(w, flowMessage(err), status)
		return
	}

	token, err := h.Signer.Issue(sess)
	if err != nil {
		log.Printf("Login: failed to sign session token: %v", err)
		JSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.Sessions.Put(sess)
	ws := h.Workspaces.Open(r.Context(), sess)
	log.Printf("Login: user %d signed in", sess.User.ID)

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:       token,
		ExpiresAt:   time.Now().Add(h.Signer.TTL()),
		User:        sess.User,
		Collections: ws.Kinds(),
	})
}

func flowMessage(err error) string {
	var fe *auth.FlowError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return (&auth.FlowError{Outcome: auth.OutcomeOf(err)}).Message()
}

// Logout ends the session locally whatever the backend answers.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSession(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.Auth.Logout(r.Context(), sess); err != nil {
		log.Printf("Logout: %v", err)
	}
	h.Sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}
