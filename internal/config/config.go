package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/theLastOfCats/cinemate-admin/internal/auth"
)

type Config struct {
	Port       string
	BackendURL string
	JWTSecret  string
	DBPath     string
	AdminRole  string
	Bootstrap  auth.BootstrapAdmin

	LocalAdminEmail    string
	LocalAdminPassword string

	CORSOrigins       []string
	PageSize          int
	UserDirectorySize int
	RequestTimeout    time.Duration
	SessionTTL        time.Duration
}

// Offline reports whether the service runs on the local store only.
func (c *Config) Offline() bool { return c.BackendURL == "" }

func Load() *Config {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		secret, err := auth.RandomSecret()
		if err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = secret
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts.")
	}

	return &Config{
		Port:       getEnv("PORT", "8080"),
		BackendURL: strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		JWTSecret:  jwtSecret,
		DBPath:     getEnv("DB_PATH", "data/cinemate.db"),
		AdminRole:  getEnv("ADMIN_ROLE", auth.DefaultAdminRole),
		Bootstrap: auth.BootstrapAdmin{
			Enabled:  envBool("BOOTSTRAP_ADMIN_ENABLED", false),
			UserID:   int64(envInt("BOOTSTRAP_ADMIN_ID", 1)),
			Username: getEnv("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		},
		LocalAdminEmail:    getEnv("LOCAL_ADMIN_EMAIL", "admin@localhost"),
		LocalAdminPassword: getEnv("LOCAL_ADMIN_PASSWORD", "admin"),
		CORSOrigins:        envList("CORS_ORIGINS", []string{"*"}),
		PageSize:           envInt("PAGE_SIZE", 10),
		UserDirectorySize:  envInt("USER_DIRECTORY_SIZE", 1000),
		RequestTimeout:     envDuration("REQUEST_TIMEOUT", 30*time.Second),
		SessionTTL:         envDuration("SESSION_TTL", 12*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 1 {
		log.Printf("Config: ignoring %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		log.Printf("Config: ignoring %s=%q", key, v)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := cast.ToDurationE(v)
	if err != nil || d <= 0 {
		log.Printf("Config: ignoring %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
