package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "here", cfg.StationID)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "*/30 * * * *", cfg.PollSchedule)
	assert.Equal(t, time.Minute, cfg.PollTimeout)
	assert.Equal(t, 3, cfg.AlertFloor)
	assert.Equal(t, 2, cfg.FeedFloor)
	assert.Equal(t, 24*time.Hour, cfg.AlertCooldown)
	assert.Equal(t, time.Hour, cfg.FeedRenderInterval)
	assert.Equal(t, "escalation", cfg.CoverRule)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, 96, cfg.HistoryMax)
	assert.Equal(t, 24*time.Hour, cfg.HistoryMaxAge)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.AccessLog)
	assert.Equal(t, 6, cfg.Scale.Len())
	assert.NotNil(t, cfg.Cover())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("STATION_ID", "@1437")
	t.Setenv("AQI_TOKEN", "aqi-token")
	t.Setenv("TG_TOKEN", "tg-token")
	t.Setenv("TG_CHAT_ID", "-100")
	t.Setenv("LISTEN_HOST", "0.0.0.0")
	t.Setenv("PORT", "9090")
	t.Setenv("POLL_SCHEDULE", "*/5 * * * *")
	t.Setenv("ALERT_FLOOR", "2")
	t.Setenv("FEED_FLOOR", "1")
	t.Setenv("ALERT_COOLDOWN", "12h")
	t.Setenv("FEED_RENDER_INTERVAL", "30m")
	t.Setenv("ALERT_COVER_RULE", "Independent")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("ACCESS_LOG", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "@1437", cfg.StationID)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, 2, cfg.AlertFloor)
	assert.Equal(t, 1, cfg.FeedFloor)
	assert.Equal(t, 12*time.Hour, cfg.AlertCooldown)
	assert.Equal(t, 30*time.Minute, cfg.FeedRenderInterval)
	assert.Equal(t, "independent", cfg.CoverRule)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.AccessLog)
	assert.True(t, cfg.DispatchEnabled())
	assert.Empty(t, cfg.Warnings())
}

func TestLoad_MissingCredentialsDegrade(t *testing.T) {
	t.Setenv("TG_TOKEN", "tg-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.DispatchEnabled())
	assert.Len(t, cfg.Warnings(), 2)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"POLL_SCHEDULE", "every minute", "POLL_SCHEDULE"},
		{"ALERT_COOLDOWN", "soon", "ALERT_COOLDOWN"},
		{"ALERT_COOLDOWN", "0s", "AlertCooldown"},
		{"FEED_RENDER_INTERVAL", "-1m", "FEED_RENDER_INTERVAL"},
		{"ALERT_FLOOR", "high", "ALERT_FLOOR"},
		{"ALERT_FLOOR", "6", "ALERT_FLOOR"},
		{"FEED_FLOOR", "4", "FeedFloor"},
		{"ALERT_COVER_RULE", "sometimes", "CoverRule"},
		{"LOG_FORMAT", "xml", "LogFormat"},
		{"PORT", "http", "Port"},
		{"FEED_LINK", "not a url", "FeedLink"},
		{"ACCESS_LOG", "maybe", "ACCESS_LOG"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ScaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scale.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tiers:\n  - label: ok\n    upper_bound: 100\n  - label: bad\n"), 0o600))
	t.Setenv("AQI_SCALE_FILE", path)
	t.Setenv("ALERT_FLOOR", "1")
	t.Setenv("FEED_FLOOR", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scale.Len())

	t.Setenv("AQI_SCALE_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AQI_SCALE_FILE")
}
