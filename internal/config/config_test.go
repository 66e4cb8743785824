package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "LOG_LEVEL", "LOG_FORMAT",
		"TIKTOK_USERNAME", "TIKTOK_PASSWORD", "COOKIES_PATH",
		"CHROME_PATH", "HEADLESS", "MAX_SESSIONS_PER_TARGET",
		"STREAM_RATE_PER_SECOND", "STREAM_RATE_BURST", "INIT_TIMEOUT",
	} {
		// Setenv registers the restore, Unsetenv makes the variable truly
		// absent so struct defaults apply.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./tiktok_cookies.json", cfg.CookiesPath)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 3, cfg.MaxSessionsPerTarget)
	assert.Equal(t, 1.0, cfg.StreamRatePerSecond)
	assert.Equal(t, 5, cfg.StreamRateBurst)
	assert.Equal(t, 120*time.Second, cfg.InitTimeout)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("HEADLESS", "false")
	t.Setenv("MAX_SESSIONS_PER_TARGET", "7")
	t.Setenv("TIKTOK_USERNAME", "user@example.com")
	t.Setenv("TIKTOK_PASSWORD", "hunter2")
	t.Setenv("INIT_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 7, cfg.MaxSessionsPerTarget)
	assert.Equal(t, "user@example.com", cfg.TikTokUsername)
	assert.Equal(t, 30*time.Second, cfg.InitTimeout)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero session cap", "MAX_SESSIONS_PER_TARGET", "0"},
		{"negative rate", "STREAM_RATE_PER_SECOND", "-1"},
		{"zero burst", "STREAM_RATE_BURST", "0"},
		{"username without password", "TIKTOK_USERNAME", "user@example.com"},
		{"password without username", "TIKTOK_PASSWORD", "hunter2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
