package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "github.com/i474232898/air-quality-alerts/internal/api/http"
	"github.com/i474232898/air-quality-alerts/internal/aqi/providers"
	"github.com/i474232898/air-quality-alerts/internal/config"
	"github.com/i474232898/air-quality-alerts/internal/feed"
	"github.com/i474232898/air-quality-alerts/internal/monitor"
	"github.com/i474232898/air-quality-alerts/internal/notify"
	"github.com/i474232898/air-quality-alerts/internal/observability"
	"github.com/i474232898/air-quality-alerts/internal/scheduler"
	"github.com/i474232898/air-quality-alerts/internal/store"
	"github.com/i474232898/air-quality-alerts/internal/throttle"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var notifier notify.Notifier
	if cfg.DispatchEnabled() {
		notifier = notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.HTTPTimeout)
	} else {
		notifier = notify.NewDisabledNotifier(logger, "TG_TOKEN or TG_CHAT_ID not set")
	}

	service := monitor.NewService(monitor.Options{
		StationID:       cfg.StationID,
		Provider:        providers.NewWAQIProvider(httpClient, cfg.AQIToken),
		Scale:           cfg.Scale,
		Alerts:          throttle.NewAlertThrottle(cfg.AlertFloor, cfg.Scale.Len()-1, cfg.AlertCooldown, cfg.Cover()),
		Feed:            throttle.NewFeedThrottle(cfg.FeedFloor, cfg.FeedRenderInterval, feed.Placeholder),
		Renderer:        feed.NewRenderer(cfg.FeedTitle, cfg.FeedLink),
		Notifier:        notifier,
		Store:           store.NewMemoryStore(cfg.HistoryMax, cfg.HistoryMaxAge, nil),
		DispatchTimeout: cfg.DispatchTimeout,
		Logger:          logger,
		Metrics:         metrics,
	})

	sched, err := scheduler.New(cfg.PollSchedule, cfg.PollTimeout, func(ctx context.Context) error {
		_, err := service.RunCycle(ctx)
		return err
	}, logger)
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()
	logger.Info("next scheduled poll", "at", sched.NextRun())

	app := httpapi.NewApp(service, cfg.AccessLog)

	go func() {
		logger.Info("http server listening", "addr", cfg.Addr(), "station", cfg.StationID)
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	service.Wait()
}
