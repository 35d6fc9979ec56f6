package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env; the file is optional outside local development.
	_ = godotenv.Load()
}

// Settings groups the process-level knobs that are not tied to a single dependency.
type Settings struct {
	Port             string
	Production       bool
	AllowedOrigins   []string
	SkipMigrations   bool
	RateLimitEnabled bool
	RateLimitMax     int64
	RateLimitWindow  time.Duration
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	SecureCookies    bool
	RedisAddress     string
}

func SettingsFromEnv() Settings {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = stringFromEnv("PORT", "8080")
	}
	production := strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
	return Settings{
		Port:             port,
		Production:       production,
		AllowedOrigins:   splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		SkipMigrations:   boolFromEnv("SKIP_MIGRATIONS", false),
		RateLimitEnabled: boolFromEnv("RATE_LIMIT_ENABLED", false),
		RateLimitMax:     int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)),
		RateLimitWindow:  time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		AccessTokenTTL:   time.Duration(intFromEnv("TOKEN_MINUTE_LIFESPAN", 60)) * time.Minute,
		RefreshTokenTTL:  time.Duration(intFromEnv("REFRESH_HOUR_LIFESPAN", 168)) * time.Hour,
		SecureCookies:    production,
		RedisAddress:     strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func stringFromEnv(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
