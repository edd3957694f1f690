// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jahiz-relay/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// App identifies the service in health output and logs.
	App AppConfig

	// Server configuration
	Server ServerConfig

	// Telegram delivery configuration
	Telegram TelegramConfig

	// Webhook security configuration
	Security SecurityConfig

	// RateLimit configures per-fingerprint throttling.
	RateLimit RateLimitConfig

	// Formatting configures message truncation.
	Formatting FormattingConfig

	// Stats configures where dispatch counters are kept.
	Stats StatsConfig
}

// AppConfig contains service identity settings.
type AppConfig struct {
	Name    string
	Version string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Port is the HTTP port to listen on.
	Port string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
}

// TelegramConfig contains Bot API settings.
type TelegramConfig struct {
	// BotToken authenticates the bot.
	BotToken string

	// ChatID is the destination chat or channel.
	ChatID string

	// BaseURL is the Bot API endpoint.
	BaseURL string

	// SendTimeout bounds one sendMessage call, pacing wait included.
	SendTimeout time.Duration

	// ProbeTimeout bounds one getMe call.
	ProbeTimeout time.Duration

	// MaxRPS paces outbound sends. Zero or less disables pacing.
	MaxRPS float64

	// MockMode logs messages instead of sending them.
	MockMode bool
}

// SecurityConfig contains inbound authentication settings.
type SecurityConfig struct {
	// WebhookSecret must be presented in the X-Webhook-Secret header.
	WebhookSecret string

	// RedactSecrets masks credentials in reports before delivery.
	RedactSecrets bool
}

// RateLimitConfig contains sliding-window settings.
type RateLimitConfig struct {
	// MaxErrors is the capacity per key and window.
	MaxErrors int

	// Window is the sliding window length.
	Window time.Duration
}

// FormattingConfig contains message truncation ceilings in characters.
type FormattingConfig struct {
	MaxStacktraceLength int
	MaxMetadataLength   int
}

// StatsBackend selects the dispatch counter store.
type StatsBackend string

const (
	StatsMemory StatsBackend = "memory"
	StatsRedis  StatsBackend = "redis"
	StatsNone   StatsBackend = "none"
)

// StatsConfig contains counter store settings.
type StatsConfig struct {
	Backend StatsBackend

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	RedisTTL      time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:    getEnvOrDefault("APP_NAME", "Jahiz Error Tracker"),
			Version: getEnvOrDefault("APP_VERSION", "1.0.0"),
		},
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", "8000"),
			ReadTimeout:  getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:       os.Getenv("TELEGRAM_CHAT_ID"),
			BaseURL:      strings.TrimSuffix(getEnvOrDefault("TELEGRAM_BASE_URL", "https://api.telegram.org"), "/"),
			SendTimeout:  getDurationOrDefault("TELEGRAM_SEND_TIMEOUT", 15*time.Second),
			ProbeTimeout: getDurationOrDefault("TELEGRAM_PROBE_TIMEOUT", 10*time.Second),
			MaxRPS:       getFloatOrDefault("TELEGRAM_MAX_RPS", 25),
			MockMode:     getBoolOrDefault("TELEGRAM_MOCK_MODE", false),
		},
		Security: SecurityConfig{
			WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
			RedactSecrets: getBoolOrDefault("REDACT_SECRETS", true),
		},
		RateLimit: RateLimitConfig{
			MaxErrors: getIntOrDefault("RATE_LIMIT_MAX_ERRORS", 30),
			Window:    getDurationOrDefault("RATE_LIMIT_WINDOW_SECONDS", 60*time.Second),
		},
		Formatting: FormattingConfig{
			MaxStacktraceLength: getIntOrDefault("MAX_STACKTRACE_LENGTH", 2000),
			MaxMetadataLength:   getIntOrDefault("MAX_METADATA_LENGTH", 1000),
		},
		Stats: StatsConfig{
			Backend:       StatsBackend(strings.ToLower(getEnvOrDefault("STATS_BACKEND", string(StatsMemory)))),
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getIntOrDefault("REDIS_DB", 0),
			RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", "jahiz:stats"),
			RedisTTL:      getDurationOrDefault("REDIS_TTL", 24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Security.WebhookSecret == "" {
		return fmt.Errorf("%w: WEBHOOK_SECRET is required", domain.ErrInvalidConfig)
	}

	// Bot credentials are required unless in mock mode
	if !c.Telegram.MockMode {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required when not in mock mode", domain.ErrInvalidConfig)
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID is required when not in mock mode", domain.ErrInvalidConfig)
		}
	}

	if c.Telegram.SendTimeout <= 0 || c.Telegram.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: TELEGRAM_SEND_TIMEOUT and TELEGRAM_PROBE_TIMEOUT must be positive", domain.ErrInvalidConfig)
	}

	if c.RateLimit.MaxErrors < 1 {
		return fmt.Errorf("%w: RATE_LIMIT_MAX_ERRORS must be at least 1", domain.ErrInvalidConfig)
	}

	if c.RateLimit.Window < time.Second {
		return fmt.Errorf("%w: RATE_LIMIT_WINDOW_SECONDS must be at least 1 second", domain.ErrInvalidConfig)
	}

	if c.Formatting.MaxStacktraceLength < 1 || c.Formatting.MaxMetadataLength < 1 {
		return fmt.Errorf("%w: MAX_STACKTRACE_LENGTH and MAX_METADATA_LENGTH must be positive", domain.ErrInvalidConfig)
	}

	switch c.Stats.Backend {
	case StatsMemory, StatsNone:
	case StatsRedis:
		if c.Stats.RedisAddr == "" {
			return fmt.Errorf("%w: REDIS_ADDR is required for the redis stats backend", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: STATS_BACKEND must be memory, redis or none, got %q", domain.ErrInvalidConfig, c.Stats.Backend)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		// Try parsing as seconds first (e.g., "15")
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		// Try parsing as duration string (e.g., "15s", "1m")
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
