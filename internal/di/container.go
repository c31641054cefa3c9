package di

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	feedDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/feed/domain"
	feedService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/feed/service"
	monitoringDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
	monitoringRepo "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/repository"
	monitoringService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/service"
	notificationService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/service"
	operatorRepo "github.com/yilmazeyup/vfs-global-tracker/internal/modules/operator/repository"
	operatorService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/operator/service"
	selectionService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/selection/service"
	settingsDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/domain"
	settingsRepo "github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/repository"
	settingsService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/service"
	statsService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/stats/service"
	"github.com/yilmazeyup/vfs-global-tracker/internal/shared/config"
	httpServer "github.com/yilmazeyup/vfs-global-tracker/internal/transport/http"
	telegramHandler "github.com/yilmazeyup/vfs-global-tracker/internal/transport/telegram"
)

const notificationHistorySize = 100

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	Register(injector)
	return injector, nil
}

// Register provides every service except the config, which the caller
// supplies. Tests use it with a hand-built config.
func Register(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*time.Location, error) {
		cfg := do.MustInvoke[*config.Config](i)
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, oops.With("timezone", cfg.Timezone, "context", "failed to load timezone").Wrap(err)
		}
		return loc, nil
	})

	do.Provide(injector, func(i do.Injector) (*countryDomain.Catalog, error) {
		return countryDomain.DefaultCatalog(), nil
	})

	// Notification sinks
	do.Provide(injector, func(i do.Injector) (*notificationService.Recorder, error) {
		return notificationService.NewRecorder(notificationHistorySize), nil
	})

	do.Provide(injector, func(i do.Injector) (*notificationService.TelegramSink, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return notificationService.NewTelegramSink(cfg.TelegramChatID), nil
	})

	do.Provide(injector, func(i do.Injector) (notificationService.Sink, error) {
		return notificationService.Fanout(
			notificationService.NewLogSink(slog.Default()),
			do.MustInvoke[*notificationService.Recorder](i),
			do.MustInvoke[*notificationService.TelegramSink](i),
		), nil
	})

	// Register Scan History Repository
	do.Provide(injector, func(i do.Injector) (monitoringRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx := context.Background()

		switch cfg.StorageDriver {
		case config.StorageDriverSqlite:
			repo, err := monitoringRepo.NewSQLiteStorage(ctx, cfg.SQLiteDSN)
			if err != nil {
				return nil, oops.With("dsn", cfg.SQLiteDSN, "context", "failed to initialize sqlite history").Wrap(err)
			}
			return repo, nil
		case config.StorageDriverPostgres:
			repo, err := monitoringRepo.NewPostgresStorage(ctx, cfg.PostgresURL)
			if err != nil {
				return nil, oops.With("context", "failed to initialize postgres history").Wrap(err)
			}
			return repo, nil
		default:
			repo, err := monitoringRepo.NewFileStorage(cfg.StoragePath)
			if err != nil {
				return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize history repository").Wrap(err)
			}
			return repo, nil
		}
	})

	// Register Operator Repository
	do.Provide(injector, func(i do.Injector) (operatorRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := operatorRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize operator repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Settings Repository
	do.Provide(injector, func(i do.Injector) (settingsRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := settingsRepo.NewFileStorage(cfg.StoragePath, settingsRepo.NewSealer(cfg.SettingsSecret))
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize settings repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Selection Service
	do.Provide(injector, func(i do.Injector) (*selectionService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		svc, err := selectionService.New(
			do.MustInvoke[*countryDomain.Catalog](i),
			cfg.DefaultCountry,
			do.MustInvoke[notificationService.Sink](i),
		)
		if err != nil {
			return nil, oops.With("default_country", cfg.DefaultCountry, "context", "failed to initialize selection").Wrap(err)
		}
		return svc, nil
	})

	do.Provide(injector, func(i do.Injector) (monitoringDomain.Scanner, error) {
		return monitoringService.NewIdleScanner(slog.Default()), nil
	})

	// Register Monitoring Service
	do.Provide(injector, func(i do.Injector) (*monitoringService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return monitoringService.New(
			do.MustInvoke[*selectionService.Service](i),
			do.MustInvoke[monitoringDomain.Scanner](i),
			do.MustInvoke[monitoringRepo.Repository](i),
			do.MustInvoke[notificationService.Sink](i),
			monitoringService.Options{
				ScanIntervalSeconds: cfg.ScanInterval,
				PauseOnAppointment:  cfg.PauseOnAppointment,
				StatusReportEvery:   cfg.StatusReportEvery,
			},
		), nil
	})

	// Register Stats Service
	do.Provide(injector, func(i do.Injector) (*statsService.Service, error) {
		return statsService.New(
			do.MustInvoke[*monitoringService.Service](i),
			do.MustInvoke[*selectionService.Service](i),
			do.MustInvoke[*time.Location](i),
		), nil
	})

	// Register Settings Service
	do.Provide(injector, func(i do.Injector) (*settingsService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		defaults := settingsDomain.Settings{
			VFSEmail:           cfg.VFSEmail,
			VFSPassword:        cfg.VFSPassword,
			TelegramToken:      cfg.TelegramBotToken,
			TelegramChatID:     cfg.TelegramChatID,
			Headless:           cfg.Headless,
			AntiDetection:      cfg.AntiDetection,
			SessionPersistence: cfg.SessionPersistence,
		}
		svc := settingsService.New(
			defaults,
			do.MustInvoke[settingsRepo.Repository](i),
			notificationService.NewTelegramTester(cfg.TelegramAPIURL),
			do.MustInvoke[notificationService.Sink](i),
		)
		svc.Load(context.Background())

		// Notifications follow the chat id saved in settings.
		do.MustInvoke[*notificationService.TelegramSink](i).SetChatSource(func() string {
			return svc.Settings().TelegramChatID
		})
		return svc, nil
	})

	// Register Operator Service
	do.Provide(injector, func(i do.Injector) (*operatorService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return operatorService.New(do.MustInvoke[operatorRepo.Repository](i), cfg.AllowedUsers), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		return feedService.New(
			do.MustInvoke[monitoringRepo.Repository](i),
			do.MustInvoke[*countryDomain.Catalog](i),
			feedDomain.DefaultFeedConfig(),
			do.MustInvoke[*time.Location](i),
		), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		return telegramHandler.New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*selectionService.Service](i),
			do.MustInvoke[*monitoringService.Service](i),
			do.MustInvoke[*statsService.Service](i),
			do.MustInvoke[*settingsService.Service](i),
			do.MustInvoke[*operatorService.Service](i),
		), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		server := httpServer.New(do.MustInvoke[*config.Config](i), httpServer.Services{
			Selection:     do.MustInvoke[*selectionService.Service](i),
			Monitoring:    do.MustInvoke[*monitoringService.Service](i),
			Stats:         do.MustInvoke[*statsService.Service](i),
			Settings:      do.MustInvoke[*settingsService.Service](i),
			Notifications: do.MustInvoke[*notificationService.Recorder](i),
			Feed:          do.MustInvoke[*feedService.Service](i),
		})
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
		}
		if cfg.TelegramAPIURL != "" {
			opts = append(opts, bot.WithServerURL(cfg.TelegramAPIURL))
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		handler.RegisterCommands(b)

		// Notifications go out through the same bot
		do.MustInvoke[*notificationService.TelegramSink](i).SetBot(b)

		return b, nil
	})
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if server, err := do.Invoke[*httpServer.Server](injector); err == nil {
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down HTTP server", "error", err)
		}
	}

	if monitoring, err := do.Invoke[*monitoringService.Service](injector); err == nil {
		monitoring.Stop(ctx)
	}

	if settings, err := do.Invoke[*settingsService.Service](injector); err == nil {
		settings.Close()
	}

	if sink, err := do.Invoke[*notificationService.TelegramSink](injector); err == nil {
		sink.Close()
	}

	if repo, err := do.Invoke[monitoringRepo.Repository](injector); err == nil {
		return repo.Close()
	}
	return nil
}
