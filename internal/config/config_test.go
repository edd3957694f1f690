package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahiz-relay/internal/domain"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Telegram.SendTimeout)
	assert.Equal(t, 10*time.Second, cfg.Telegram.ProbeTimeout)
	assert.Equal(t, 30, cfg.RateLimit.MaxErrors)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 2000, cfg.Formatting.MaxStacktraceLength)
	assert.Equal(t, 1000, cfg.Formatting.MaxMetadataLength)
	assert.True(t, cfg.Security.RedactSecrets)
	assert.Equal(t, StatsMemory, cfg.Stats.Backend)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RATE_LIMIT_MAX_ERRORS", "5")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "120")
	t.Setenv("TELEGRAM_SEND_TIMEOUT", "2500ms")
	t.Setenv("TELEGRAM_BASE_URL", "http://localhost:9999/")
	t.Setenv("STATS_BACKEND", "REDIS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RateLimit.MaxErrors)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 2500*time.Millisecond, cfg.Telegram.SendTimeout)
	assert.Equal(t, "http://localhost:9999", cfg.Telegram.BaseURL)
	assert.Equal(t, StatsRedis, cfg.Stats.Backend)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"WEBHOOK_SECRET": ""}},
		{"missing token", map[string]string{"TELEGRAM_BOT_TOKEN": ""}},
		{"missing chat", map[string]string{"TELEGRAM_CHAT_ID": ""}},
		{"zero capacity", map[string]string{"RATE_LIMIT_MAX_ERRORS": "0"}},
		{"tiny window", map[string]string{"RATE_LIMIT_WINDOW_SECONDS": "10ms"}},
		{"bad backend", map[string]string{"STATS_BACKEND": "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
		})
	}
}

func TestLoad_MockModeSkipsCredentials(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("TELEGRAM_MOCK_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Telegram.MockMode)
}
