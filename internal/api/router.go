package api

import (
	"net/http"

	"github.com/theLastOfCats/cinemate-admin/internal/auth"
	"github.com/theLastOfCats/cinemate-admin/internal/catalog"
)

type Deps struct {
	Auth        auth.Authenticator
	Sessions    *auth.Sessions
	Signer      *auth.Signer
	Workspaces  *catalog.Registry
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	// Workspaces live exactly as long as their session.
	d.Sessions.OnEvict(func(s *auth.Session) { d.Workspaces.Close(s.ID) })

	m := &Middleware{Signer: d.Signer, Sessions: d.Sessions}
	authHandler := &AuthHandler{
		Auth:       d.Auth,
		Sessions:   d.Sessions,
		Signer:     d.Signer,
		Workspaces: d.Workspaces,
	}
	userHandler := &UserHandler{}
	collections := &CollectionHandler{Workspaces: d.Workspaces}

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /{$}", Health)
	mux.HandleFunc("POST /auth/login", authHandler.Login)

	// Protected Routes
	mux.Handle("POST /auth/logout", m.AuthMiddleware(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /me", m.Protect(userHandler.GetMe))
	mux.Handle("GET /catalog/series", m.Protect(collections.Series))

	mux.Handle("GET /collections/{kind}", m.Protect(collections.List))
	mux.Handle("POST /collections/{kind}/refresh", m.Protect(collections.Refresh))
	mux.Handle("POST /collections/{kind}/draft", m.Protect(collections.StartAdding))
	mux.Handle("GET /collections/{kind}/draft", m.Protect(collections.GetDraft))
	mux.Handle("PUT /collections/{kind}/draft", m.Protect(collections.SaveDraft))
	mux.Handle("DELETE /collections/{kind}/draft", m.Protect(collections.CancelDraft))
	mux.Handle("POST /collections/{kind}/items/{pos}/draft", m.Protect(collections.StartEditing))
	mux.Handle("DELETE /collections/{kind}/items/{pos}", m.Protect(collections.Remove))

	return LoggingMiddleware(CORS(d.CORSOrigins)(mux))
}
