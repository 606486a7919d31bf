package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-wide settings, filled from environment variables
// with development defaults. A .env file is honoured when present.
type Config struct {
	Port string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	RedisAddr string

	AdminPassword string
	JWTSecret     string

	SiteBaseURL string

	// AllowedImportHosts is the allow-list of publishing platforms imports
	// may target. Subdomains of each entry are accepted.
	AllowedImportHosts []string

	ImportTimeout time.Duration
	SettleDelay   time.Duration
}

func Load() *Config {
	// Ignore the error: a missing .env just means plain env vars.
	_ = godotenv.Load()

	return &Config{
		Port:          envOrDefault("PORT", "8080"),
		DBHost:        envOrDefault("DB_HOST", "localhost"),
		DBPort:        envOrDefault("DB_PORT", "5432"),
		DBName:        envOrDefault("DB_NAME", "blog_db"),
		DBUser:        envOrDefault("DB_USER", "blog_user"),
		DBPass:        envOrDefault("DB_PASS", "blog_pass"),
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		AdminPassword: envOrDefault("ADMIN_PASSWORD", ""),
		JWTSecret:     envOrDefault("JWT_SECRET", ""),
		SiteBaseURL:   envOrDefault("SITE_BASE_URL", "https://mandate.app"),
		AllowedImportHosts: splitHosts(envOrDefault("IMPORT_ALLOWED_HOSTS",
			"medium.com,towardsdatascience.com,betterprogramming.pub")),
		ImportTimeout: envDuration("IMPORT_TIMEOUT", 60*time.Second),
		SettleDelay:   envDuration("IMPORT_SETTLE_DELAY", 5*time.Second),
	}
}

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}

func envDuration(key string, d time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return parsed
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
