package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAdminToken is used when ADMIN_TOKEN is not set.
const DefaultAdminToken = "TopSecretAdminKey"

type Config struct {
	DatabaseURL string
	Port        string
	LogLevel    string

	// Admin gate
	AdminToken    string
	SessionMaxAge time.Duration

	// DefaultAdminTokenUsed is set when ADMIN_TOKEN was empty and
	// DefaultAdminToken was substituted.
	DefaultAdminTokenUsed bool

	QueryTimeout    time.Duration
	SnowflakeNode   int
	ShutdownTimeout time.Duration
}

// LoadEnvFile loads variables from the given dotenv files (".env" when none
// are given) without overriding the existing environment. Missing files are
// ignored.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func Load() Config {
	token, defaulted := adminToken()
	return Config{
		DatabaseURL:           getEnvRequired("DATABASE_URL"),
		Port:                  getEnv("PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		AdminToken:            token,
		DefaultAdminTokenUsed: defaulted,
		SessionMaxAge:         getEnvDuration("SESSION_MAX_AGE", time.Hour),
		QueryTimeout:          getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		SnowflakeNode:         getEnvInt("SNOWFLAKE_NODE", 1),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func adminToken() (string, bool) {
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		return v, false
	}
	return DefaultAdminToken, true
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
