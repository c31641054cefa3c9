package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sloghttp "github.com/samber/slog-http"

	feedService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/feed/service"
	monitoringService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/service"
	notificationService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/service"
	selectionService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/selection/service"
	settingsService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/service"
	statsService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/stats/service"
	"github.com/yilmazeyup/vfs-global-tracker/internal/shared/config"
)

// Services groups the controller models exposed over HTTP.
type Services struct {
	Selection     *selectionService.Service
	Monitoring    *monitoringService.Service
	Stats         *statsService.Service
	Settings      *settingsService.Service
	Notifications *notificationService.Recorder
	Feed          *feedService.Service
}

// Server exposes the control surface and the scan history feed
type Server struct {
	cfg      *config.Config
	services Services
	logger   *slog.Logger

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// New creates a new HTTP server
func New(cfg *config.Config, services Services) *Server {
	return &Server{
		cfg:      cfg,
		services: services,
		logger:   slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler returns the routed handler wrapped in the logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/countries", s.handleCountries)
	mux.HandleFunc("PUT /api/country/{code}", s.handleSelectCountry)
	mux.HandleFunc("POST /api/offices/{office}/toggle", s.handleToggleOffice)
	mux.HandleFunc("PUT /api/interval/{seconds}", s.handleSetInterval)
	mux.HandleFunc("POST /api/monitoring/start", s.handleStart)
	mux.HandleFunc("POST /api/monitoring/stop", s.handleStop)
	mux.HandleFunc("POST /api/monitoring/scan", s.handleScanNow)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings/credentials/{field}", s.handleSetCredential)
	mux.HandleFunc("PUT /api/settings/flags/{flag}/{enabled}", s.handleSetFlag)
	mux.HandleFunc("POST /api/settings/save", s.handleSaveSettings)
	mux.HandleFunc("POST /api/settings/test-notification", s.handleTestNotification)

	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("GET /rss", s.handleRSSFeed)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	// Use slog-http middleware with recovery
	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)
	return handler
}

// Start starts the HTTP server and blocks until it is shut down. Start after
// Shutdown returns nil without listening.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.server = server
	s.mu.Unlock()

	s.logger.Info("HTTP server starting", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
