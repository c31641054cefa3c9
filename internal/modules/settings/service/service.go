package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	notificationDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/domain"
	notificationService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/service"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/domain"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/repository"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

const backgroundTimeout = 15 * time.Second

// ChannelTester delivers a one-off message through the notification channel.
type ChannelTester interface {
	SendTest(ctx context.Context, token, chatID string) error
}

// Service holds credentials and browser flags. It is independent of the
// monitoring session; persistence and channel tests run in the background.
type Service struct {
	repo     repository.Repository
	tester   ChannelTester
	notifier notificationService.Sink

	mu       sync.RWMutex
	settings domain.Settings
	wg       sync.WaitGroup
}

// New creates a settings service seeded with defaults.
func New(defaults domain.Settings, repo repository.Repository, tester ChannelTester, notifier notificationService.Sink) *Service {
	return &Service{
		repo:     repo,
		tester:   tester,
		notifier: notifier,
		settings: defaults,
	}
}

// Load replaces the defaults with stored settings when there are any.
// Failures are logged and leave the current values in place.
func (s *Service) Load(ctx context.Context) {
	if s.repo == nil {
		return
	}

	stored, ok, err := s.repo.Load(ctx)
	if err != nil {
		slog.Warn("Failed to load settings, keeping defaults", "error", err)
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	s.settings = stored
	s.mu.Unlock()
	slog.Info("Settings loaded")
}

// Settings returns a copy of the current settings.
func (s *Service) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetCredentialField assigns one credential by name.
func (s *Service) SetCredentialField(ctx context.Context, name, value string) error {
	field, err := domain.ParseCredentialField(name)
	if err != nil {
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, fmt.Sprintf("unknown credential field %q", name))
		return apperrors.Validation("field", "unknown credential field", "field", name)
	}

	s.mu.Lock()
	s.settings.Set(field, value)
	s.mu.Unlock()

	slog.Debug("Credential field updated", "field", field)
	return nil
}

// SetBrowserFlag toggles one browser behaviour by name.
func (s *Service) SetBrowserFlag(ctx context.Context, name string, enabled bool) error {
	flag, err := domain.ParseBrowserFlag(name)
	if err != nil {
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, fmt.Sprintf("unknown browser flag %q", name))
		return apperrors.Validation("flag", "unknown browser flag", "flag", name)
	}

	s.mu.Lock()
	s.settings.SetFlag(flag, enabled)
	s.mu.Unlock()

	slog.Debug("Browser flag updated", "flag", flag, "enabled", enabled)
	return nil
}

// Save hands a snapshot to the repository without waiting for it. The
// outcome is reported through the notifier.
func (s *Service) Save(ctx context.Context) {
	snapshot := s.Settings()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
		defer cancel()

		if s.repo == nil {
			return
		}
		if err := s.repo.Save(saveCtx, snapshot); err != nil {
			slog.Error("Failed to save settings", "error", err)
			notificationService.Notify(saveCtx, s.notifier, notificationDomain.SeverityError, "failed to save settings")
			return
		}
		notificationService.Notify(saveCtx, s.notifier, notificationDomain.SeveritySuccess, "settings saved")
	}()
}

// TestNotificationChannel sends a test message with the configured Telegram
// credentials. Without both token and chat id no message is attempted.
// The delivery result is only logged.
func (s *Service) TestNotificationChannel(ctx context.Context) error {
	snapshot := s.Settings()
	if !snapshot.HasTelegramCredentials() {
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, "missing Telegram credentials")
		return apperrors.Validation("telegram", "missing Telegram credentials")
	}

	if s.tester != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
			defer cancel()

			if err := s.tester.SendTest(sendCtx, snapshot.TelegramToken, snapshot.TelegramChatID); err != nil {
				slog.Warn("Test notification failed", "chat_id", snapshot.TelegramChatID, "error", err)
			}
		}()
	}

	notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityInfo, "test notification sent")
	return nil
}

// Close waits for background saves and test sends.
func (s *Service) Close() {
	s.wg.Wait()
}
