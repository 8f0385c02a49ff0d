package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/mkarpov/chargewatch/internal/config"
	"github.com/mkarpov/chargewatch/internal/monitor"
	"github.com/mkarpov/chargewatch/internal/notify"
	"github.com/mkarpov/chargewatch/internal/report"
	"github.com/mkarpov/chargewatch/internal/storage"
	"github.com/mkarpov/chargewatch/internal/web"
)

func main() {
	// --- 1. Load Config ---
	cfg, err := config.Load("config.toml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// --- 2. Setup Logger ---
	setupLogger(cfg.Log.Level)
	slog.Info("starting chargewatch", "interval", cfg.Watch.Interval, "state_file", cfg.Watch.StateFile)

	// --- 3. Load Offline Set ---
	store := storage.NewStore(cfg.Watch.StateFile)
	offline := store.Load()
	slog.Info("offline set loaded", "stations", offline.Len())

	// --- 4. Init Notifier ---
	notifier := &notify.TelegramNotifier{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
	}
	if err := notifier.Validate(); err != nil {
		slog.Error("invalid notifier config", "error", err)
		os.Exit(1)
	}

	// --- 5. Init Report Source ---
	source, err := report.NewHTTPSource(report.HTTPConfig{
		BaseURL:   cfg.Source.BaseURL,
		LoginPath: cfg.Source.LoginPath,
		ListPath:  cfg.Source.ListPath,
		Username:  cfg.Source.Username,
		Password:  cfg.Source.Password,
		Timeout:   cfg.Source.Timeout,
		Headless:  cfg.Source.Headless,
	})
	if err != nil {
		slog.Error("failed to init report source", "error", err)
		os.Exit(1)
	}

	// --- 6. Init Watcher & Scheduler ---
	tracker := monitor.NewTracker()
	metrics.NewGauge("chargewatch_offline_stations", func() float64 {
		return float64(tracker.OfflineCount())
	})

	watcher := monitor.NewWatcher(source, notifier, store, tracker)
	scheduler := monitor.NewScheduler(watcher, cfg.Watch.Interval, cfg.Watch.CycleTimeout, offline)
	scheduler.Start()

	// --- 7. Operational HTTP Server ---
	router := web.NewRouter(cfg.Server, tracker)
	srv := &http.Server{
		Addr:    cfg.Server.BindAddress,
		Handler: router,
	}

	go func() {
		slog.Info("operational server running", "address", cfg.Server.BindAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// --- 8. Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received shutdown signal", "signal", sig)

	// Let an in-flight cycle finish and persist before exiting.
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}

	slog.Info("chargewatch stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
