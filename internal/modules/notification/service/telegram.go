package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/samber/oops"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/domain"
)

const sendTimeout = 10 * time.Second

// TelegramSink forwards notifications to a Telegram chat. Messages are sent
// in the background; Close waits for in-flight sends.
//
// The bot, and so the token, is fixed at startup. The destination chat is
// read from the chat source on every message, so a chat id saved in settings
// takes effect without a restart.
type TelegramSink struct {
	chatID     string
	chatSource func() string
	bot        *bot.Bot
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

// NewTelegramSink creates a sink for chatID. The bot is attached later with SetBot.
func NewTelegramSink(chatID string) *TelegramSink {
	return &TelegramSink{chatID: chatID}
}

// SetBot sets the Telegram bot instance
func (s *TelegramSink) SetBot(b *bot.Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bot = b
}

// SetChatSource sets the function that yields the destination chat. The chat
// id given to NewTelegramSink is used whenever source returns "".
func (s *TelegramSink) SetChatSource(source func() string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatSource = source
}

// ChatID returns the chat the next message goes to.
func (s *TelegramSink) ChatID() string {
	s.mu.RLock()
	source := s.chatSource
	s.mu.RUnlock()

	if source != nil {
		if chatID := source(); chatID != "" {
			return chatID
		}
	}
	return s.chatID
}

func (s *TelegramSink) Notify(ctx context.Context, n domain.Notification) {
	s.mu.RLock()
	b := s.bot
	s.mu.RUnlock()

	chatID := s.ChatID()
	if b == nil || chatID == "" {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()

		if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   n.Icon() + " " + n.Message,
		}); err != nil {
			slog.Warn("Failed to deliver Telegram notification", "chat_id", chatID, "error", err)
		}
	}()
}

// Close waits for pending sends.
func (s *TelegramSink) Close() {
	s.wg.Wait()
}

// TelegramTester sends a one-off message with candidate credentials.
type TelegramTester struct {
	serverURL string
}

// NewTelegramTester creates a tester talking to serverURL (the public API when empty).
func NewTelegramTester(serverURL string) *TelegramTester {
	return &TelegramTester{serverURL: serverURL}
}

func (t *TelegramTester) SendTest(ctx context.Context, token, chatID string) error {
	opts := []bot.Option{bot.WithSkipGetMe()}
	if t.serverURL != "" {
		opts = append(opts, bot.WithServerURL(t.serverURL))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return oops.With("context", "failed to create telegram bot").Wrap(err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🧪 VFS tracker test notification",
	}); err != nil {
		return oops.With("chat_id", chatID, "context", "failed to send test notification").Wrap(err)
	}
	return nil
}
