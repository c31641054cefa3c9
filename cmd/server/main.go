package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"

	"github.com/yilmazeyup/vfs-global-tracker/internal/di"
	"github.com/yilmazeyup/vfs-global-tracker/internal/shared/config"
	httpServer "github.com/yilmazeyup/vfs-global-tracker/internal/transport/http"
)

func main() {
	// Setup structured logging with multiple handlers using slog-multi
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	// Use Fanout to send logs to both handlers
	multiHandler := slogmulti.Fanout(textHandler, jsonHandler)
	logger := slog.New(multiHandler)
	slog.SetDefault(logger)

	// Setup dependency injection
	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	server, err := do.Invoke[*httpServer.Server](injector)
	if err != nil {
		slog.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start HTTP server
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Failed to start HTTP server", "error", err)
			cancel()
		}
	}()

	if cfg.TelegramEnabled() {
		b, err := do.Invoke[*bot.Bot](injector)
		if err != nil {
			slog.Error("Failed to start Telegram bot", "error", err)
		} else {
			go b.Start(ctx)
			slog.Info("Telegram bot started", "allowed_users", len(cfg.AllowedUsers))
		}
	} else {
		slog.Warn("TELEGRAM_BOT_TOKEN not set, Telegram control and notifications are disabled")
	}

	slog.Info("Application started",
		"port", cfg.HTTPPort,
		"env", cfg.AppEnv,
		"storage_driver", cfg.StorageDriver,
		"default_country", cfg.DefaultCountry,
	)
	slog.Info("Press Ctrl+C to stop")

	<-ctx.Done()
	slog.Info("Shutting down...")

	if err := di.Shutdown(injector); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
