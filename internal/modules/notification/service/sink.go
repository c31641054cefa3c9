package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/domain"
)

// Sink receives user-facing status messages.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Notify builds a notification stamped with the current time and hands it to sink.
func Notify(ctx context.Context, sink Sink, severity domain.Severity, message string) {
	if sink == nil {
		return
	}
	sink.Notify(ctx, domain.Notification{
		Severity: severity,
		Message:  message,
		At:       time.Now(),
	})
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink backed by logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n domain.Notification) {
	level := slog.LevelInfo
	if n.Severity == domain.SeverityError {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "Notification", "severity", n.Severity, "message", n.Message)
}

type fanout []Sink

// Fanout sends every notification to all sinks in order.
func Fanout(sinks ...Sink) Sink {
	return fanout(lo.Filter(sinks, func(s Sink, _ int) bool { return s != nil }))
}

func (f fanout) Notify(ctx context.Context, n domain.Notification) {
	for _, sink := range f {
		sink.Notify(ctx, n)
	}
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	items    []domain.Notification
}

// NewRecorder creates a recorder holding at most capacity notifications.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 50
	}
	return &Recorder{capacity: capacity}
}

func (r *Recorder) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, n)
	if len(r.items) > r.capacity {
		r.items = r.items[len(r.items)-r.capacity:]
	}
}

// Recent returns up to limit notifications, newest first.
func (r *Recorder) Recent(limit int) []domain.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := lo.Reverse(append([]domain.Notification(nil), r.items...))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Last returns the newest notification.
func (r *Recorder) Last() (domain.Notification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.items) == 0 {
		return domain.Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
