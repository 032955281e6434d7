package api

import (
	"net/http"
	"time"

	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

type UserHandler struct{}

type MeResponse struct {
	User            model.User `json:"user"`
	IsAdmin         bool       `json:"isAdmin"`
	AccessExpiresAt time.Time  `json:"accessExpiresAt,omitzero"`
	SignedInAt      time.Time  `json:"signedInAt"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSession(r)
	if !ok {
		// Should be handled by middleware usually, but unexpected assertion fail
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		User:            sess.User,
		IsAdmin:         sess.IsAdmin,
		AccessExpiresAt: sess.AccessExpiresAt,
		SignedInAt:      sess.CreatedAt,
	})
}
