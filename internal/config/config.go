package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/i474232898/air-quality-alerts/internal/aqi"
	"github.com/i474232898/air-quality-alerts/internal/throttle"
)

var validate = validator.New()

type AppConfig struct {
	// Upstream station. "here" lets WAQI geolocate the caller.
	StationID string `validate:"required"`
	AQIToken  string

	TelegramToken  string
	TelegramChatID string

	ListenHost string `validate:"required"`
	Port       string `validate:"required,numeric"`
	AccessLog  bool

	// PollSchedule is a five-field cron expression.
	PollSchedule string        `validate:"required"`
	PollTimeout  time.Duration `validate:"gt=0"`

	AlertFloor         int           `validate:"gte=0"`
	FeedFloor          int           `validate:"gte=0,ltefield=AlertFloor"`
	AlertCooldown      time.Duration `validate:"gt=0"`
	FeedRenderInterval time.Duration `validate:"gt=0"`
	CoverRule          string        `validate:"oneof=escalation independent"`

	HTTPTimeout     time.Duration `validate:"gt=0"`
	DispatchTimeout time.Duration `validate:"gt=0"`

	// In-memory reading history retention.
	HistoryMax    int           `validate:"gte=0"` // 0 = unlimited
	HistoryMaxAge time.Duration `validate:"gte=0"` // 0 = unlimited

	ScaleFile string
	Scale     *aqi.Scale `validate:"-"`

	FeedTitle string `validate:"required"`
	FeedLink  string `validate:"required,url"`

	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=json text"`
}

// Load reads configuration from environment with sensible defaults.
// Missing credentials are not errors; see Warnings.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		StationID:      getenvDefault("STATION_ID", "here"),
		AQIToken:       os.Getenv("AQI_TOKEN"),
		TelegramToken:  os.Getenv("TG_TOKEN"),
		TelegramChatID: os.Getenv("TG_CHAT_ID"),
		ListenHost:     getenvDefault("LISTEN_HOST", "127.0.0.1"),
		Port:           getenvDefault("PORT", "8080"),
		PollSchedule:   getenvDefault("POLL_SCHEDULE", "*/30 * * * *"),
		CoverRule:      strings.ToLower(getenvDefault("ALERT_COVER_RULE", "escalation")),
		ScaleFile:      os.Getenv("AQI_SCALE_FILE"),
		FeedTitle:      getenvDefault("FEED_TITLE", "AQI Alerts"),
		FeedLink:       getenvDefault("FEED_LINK", "https://aqicn.org/"),
		LogLevel:       strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getenvDefault("LOG_FORMAT", "json")),
	}

	var err error
	if cfg.AccessLog, err = getenvBool("ACCESS_LOG", true); err != nil {
		return nil, err
	}
	if cfg.AlertFloor, err = getenvInt("ALERT_FLOOR", 3); err != nil {
		return nil, err
	}
	if cfg.FeedFloor, err = getenvInt("FEED_FLOOR", 2); err != nil {
		return nil, err
	}
	if cfg.HistoryMax, err = getenvInt("HISTORY_MAX", 96); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"POLL_TIMEOUT", "1m", &cfg.PollTimeout},
		{"ALERT_COOLDOWN", "24h", &cfg.AlertCooldown},
		{"FEED_RENDER_INTERVAL", "60m", &cfg.FeedRenderInterval},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"DISPATCH_TIMEOUT", "15s", &cfg.DispatchTimeout},
		{"HISTORY_MAX_AGE", "24h", &cfg.HistoryMaxAge},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := cron.ParseStandard(cfg.PollSchedule); err != nil {
		return nil, fmt.Errorf("invalid POLL_SCHEDULE: %w", err)
	}

	cfg.Scale = aqi.DefaultScale()
	if cfg.ScaleFile != "" {
		if cfg.Scale, err = aqi.LoadScale(cfg.ScaleFile); err != nil {
			return nil, fmt.Errorf("invalid AQI_SCALE_FILE: %w", err)
		}
	}
	if cfg.AlertFloor >= cfg.Scale.Len() {
		return nil, fmt.Errorf("invalid ALERT_FLOOR: scale has %d tiers", cfg.Scale.Len())
	}

	return cfg, nil
}

// Addr is the HTTP listen address.
func (c *AppConfig) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// DispatchEnabled reports whether Telegram credentials are present.
func (c *AppConfig) DispatchEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// Cover returns the configured covering rule.
func (c *AppConfig) Cover() throttle.CoverRule {
	rule, _ := throttle.CoverRuleByName(c.CoverRule)
	return rule
}

// Warnings lists degraded channels. They are logged at startup; the process
// keeps running.
func (c *AppConfig) Warnings() []string {
	var w []string
	if c.AQIToken == "" {
		w = append(w, "AQI_TOKEN is not set; every poll will fail until it is configured")
	}
	if !c.DispatchEnabled() {
		w = append(w, "TG_TOKEN or TG_CHAT_ID is not set; alerts will be logged but not delivered")
	}
	return w
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, errors.New("invalid " + key + ": must not be negative")
	}
	return d, nil
}
