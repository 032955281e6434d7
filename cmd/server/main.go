package main

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/theLastOfCats/cinemate-admin/internal/api"
	"github.com/theLastOfCats/cinemate-admin/internal/auth"
	"github.com/theLastOfCats/cinemate-admin/internal/catalog"
	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/config"
	"github.com/theLastOfCats/cinemate-admin/internal/db"
)

const sweepInterval = 5 * time.Minute

func main() {
	cfg := config.Load()

	var authenticator auth.Authenticator
	var source catalog.Source

	if cfg.Offline() {
		// No backend: every collection lives in the local database.
		database, err := db.New(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()

		hash, err := auth.HashPassword(cfg.LocalAdminPassword)
		if err != nil {
			log.Fatalf("Failed to hash local admin password: %v", err)
		}
		if _, err := database.EnsureAdmin(context.Background(), cfg.LocalAdminEmail, hash, cfg.AdminRole); err != nil {
			log.Fatalf("Failed to provision local admin: %v", err)
		}
		log.Printf("Running offline on %s (%s), admin account %s", cfg.DBPath, database.Dialect, cfg.LocalAdminEmail)

		authenticator = &auth.LocalAuthenticator{DB: database, AdminRole: cfg.AdminRole}
		source = catalog.LocalSource(database)
	} else {
		client := cinemate.New(cfg.BackendURL, &http.Client{Timeout: cfg.RequestTimeout})
		authenticator = &auth.Resolver{
			Client:        client,
			AdminRole:     cfg.AdminRole,
			Bootstrap:     cfg.Bootstrap,
			DirectorySize: cfg.UserDirectorySize,
		}
		source = catalog.RemoteSource(client, cfg.UserDirectorySize)
		log.Printf("Using Cinemate backend at %s", cfg.BackendURL)
		if cfg.Bootstrap.Enabled {
			log.Printf("WARNING: bootstrap admin enabled for user id %d / username %q", cfg.Bootstrap.UserID, cfg.Bootstrap.Username)
		}
	}

	sessions := auth.NewSessions(cfg.SessionTTL)
	workspaces := catalog.NewRegistry(source, catalog.Options{PageSize: cfg.PageSize})
	defer workspaces.CloseAll()

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if n := sessions.Sweep(); n > 0 {
				log.Printf("Sessions: evicted %d expired", n)
			}
		}
	}()

	handler := api.NewRouter(api.Deps{
		Auth:        authenticator,
		Sessions:    sessions,
		Signer:      auth.NewSigner(cfg.JWTSecret, cfg.SessionTTL),
		Workspaces:  workspaces,
		CORSOrigins: cfg.CORSOrigins,
	})

	log.Printf("Server starting on port %s...", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
