// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Event sinks.
const (
	EventsSinkNone     = "none"
	EventsSinkPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	Session        SessionConfig
	Events         EventsConfig
	Telegram       TelegramConfig
	WebSocket      WebSocketConfig
	Log            LogConfig
	CurriculumPath string // empty means the embedded catalog
	LessonIndex    int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	URL string
}

// SessionConfig selects where live quiz sessions are kept.
type SessionConfig struct {
	Store string // "memory" or "redis"
	TTL   time.Duration
}

// EventsConfig selects where analytics events go.
type EventsConfig struct {
	Sink string // "none" or "postgres"
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	BotToken string
}

// Enabled reports whether a bot token is configured.
func (t TelegramConfig) Enabled() bool { return t.BotToken != "" }

// WebSocketConfig holds browser channel settings.
type WebSocketConfig struct {
	Enabled        bool
	OriginPatterns []string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// SlogLevel maps Level to a slog level. Unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", ""),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", "redis://localhost:6379"),
		},
		Session: SessionConfig{
			Store: strings.ToLower(envStr("LEARN_SESSION_STORE", SessionStoreMemory)),
			TTL:   time.Duration(envInt("LEARN_SESSION_TTL_MINUTES", 120)) * time.Minute,
		},
		Events: EventsConfig{
			Sink: strings.ToLower(envStr("LEARN_EVENTS_SINK", EventsSinkNone)),
		},
		Telegram: TelegramConfig{
			BotToken: envStr("LEARN_TELEGRAM_BOT_TOKEN", ""),
		},
		WebSocket: WebSocketConfig{
			Enabled:        envBool("LEARN_WEBSOCKET_ENABLED", true),
			OriginPatterns: envList("LEARN_WEBSOCKET_ORIGINS"),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: strings.ToLower(envStr("LEARN_LOG_FORMAT", "json")),
		},
		CurriculumPath: envStr("LEARN_CURRICULUM_PATH", ""),
		LessonIndex:    envInt("LEARN_LESSON_INDEX", 0),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be in 1-65535, got %d", c.Server.Port)
	}

	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("LEARN_CACHE_URL is required when LEARN_SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("LEARN_SESSION_STORE must be 'memory' or 'redis', got %q", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("LEARN_SESSION_TTL_MINUTES must be positive")
	}

	switch c.Events.Sink {
	case EventsSinkNone:
	case EventsSinkPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("LEARN_DATABASE_URL is required when LEARN_EVENTS_SINK=postgres")
		}
	default:
		return fmt.Errorf("LEARN_EVENTS_SINK must be 'none' or 'postgres', got %q", c.Events.Sink)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if c.LessonIndex < 0 {
		return fmt.Errorf("LEARN_LESSON_INDEX must not be negative, got %d", c.LessonIndex)
	}

	if !c.Telegram.Enabled() && !c.WebSocket.Enabled {
		return fmt.Errorf("at least one channel must be enabled (LEARN_TELEGRAM_BOT_TOKEN or LEARN_WEBSOCKET_ENABLED)")
	}

	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envList splits a comma-separated value, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
