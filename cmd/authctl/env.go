package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// EnvBool reads a bool env var with a default.
func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDuration reads a positive duration env var with a default.
func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// EnvConfig is the runtime configuration loaded from AUTHCTL_* variables.
// Flags given on the command line take precedence.
type EnvConfig struct {
	BaseURL string
	Timeout time.Duration

	// Store is one of file, redis, postgres or memory.
	Store     string
	FilePath  string
	Namespace string

	RedisAddr string
	RedisTTL  time.Duration

	DatabaseURL    string
	PostgresSchema string

	RejectExpired bool

	LogLevel  string
	LogFormat string
}

// LoadEnvConfig loads EnvConfig from the environment with defaults.
func LoadEnvConfig() EnvConfig {
	return EnvConfig{
		BaseURL: EnvString("AUTHCTL_BASE_URL", "http://localhost:8000"),
		Timeout: EnvDuration("AUTHCTL_TIMEOUT", 15*time.Second),

		Store:     strings.ToLower(EnvString("AUTHCTL_STORE", "file")),
		FilePath:  EnvString("AUTHCTL_FILE", defaultSessionFile()),
		Namespace: EnvString("AUTHCTL_NAMESPACE", "authctl"),

		RedisAddr: EnvString("AUTHCTL_REDIS_ADDR", "127.0.0.1:6379"),
		RedisTTL:  EnvDuration("AUTHCTL_REDIS_TTL", 7*24*time.Hour),

		DatabaseURL:    EnvString("AUTHCTL_DATABASE_URL", ""),
		PostgresSchema: EnvString("AUTHCTL_PG_SCHEMA", "public"),

		RejectExpired: EnvBool("AUTHCTL_REJECT_EXPIRED", false),

		LogLevel:  EnvString("AUTHCTL_LOG_LEVEL", "warn"),
		LogFormat: EnvString("AUTHCTL_LOG_FORMAT", "text"),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "authctl-session.json"
	}
	return filepath.Join(dir, "authctl", "session.json")
}
