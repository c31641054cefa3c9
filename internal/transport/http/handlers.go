package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	monitoringDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

const maxBodyBytes = 4 << 10

type countryView struct {
	Code        string   `json:"code"`
	DisplayName string   `json:"display_name"`
	Offices     []string `json:"offices"`
	Active      bool     `json:"active"`
}

type scanResponse struct {
	Found        int                            `json:"found"`
	Appointments []monitoringDomain.Appointment `json:"appointments"`
	Session      monitoringDomain.Snapshot      `json:"session"`
}

type countriesResponse struct {
	Countries       []countryView `json:"countries"`
	SelectedOffices []string      `json:"selected_offices"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"monitoring": s.services.Monitoring.Snapshot().Status.String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.services.Stats.Current())
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.countries())
}

func (s *Server) handleSelectCountry(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Selection.SelectCountry(r.Context(), r.PathValue("code")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.countries())
}

func (s *Server) handleToggleOffice(w http.ResponseWriter, r *http.Request) {
	office := r.PathValue("office")
	selected, err := s.services.Selection.ToggleOffice(r.Context(), office)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"office":   countryDomain.NormalizeOffice(office),
		"selected": selected,
	})
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("seconds")
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, apperrors.Validation("interval", "scan interval must be a whole number of seconds", "value", raw))
		return
	}
	if err := s.services.Monitoring.SetScanInterval(r.Context(), seconds); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.services.Monitoring.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Monitoring.Start(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.services.Monitoring.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.services.Monitoring.Stop(r.Context())
	writeJSON(w, http.StatusOK, s.services.Monitoring.Snapshot())
}

func (s *Server) handleScanNow(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Monitoring.ScanNow(r.Context())
	if err != nil {
		if apperrors.IsValidation(err) {
			s.writeError(w, err)
			return
		}
		s.logger.Warn("Manual scan failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Found:        result.Found(),
		Appointments: lo.CoalesceSliceOrEmpty(result.Appointments),
		Session:      s.services.Monitoring.Snapshot(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.services.Settings.Settings().Masked())
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if err := s.services.Settings.SetCredentialField(r.Context(), r.PathValue("field"), strings.TrimSpace(string(body))); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.services.Settings.Settings().Masked())
}

func (s *Server) handleSetFlag(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.PathValue("enabled"))
	if err != nil {
		s.writeError(w, apperrors.Validation("enabled", "expected true or false", "value", r.PathValue("enabled")))
		return
	}
	if err := s.services.Settings.SetBrowserFlag(r.Context(), r.PathValue("flag"), enabled); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.services.Settings.Settings().Masked())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	s.services.Settings.Save(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "saving"})
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Settings.TestNotificationChannel(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, apperrors.Validation("limit", "limit must be a positive number", "value", raw))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.services.Notifications.Recent(limit))
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	baseURL := fmt.Sprintf("%s://%s", getScheme(r), r.Host)

	feed, err := s.services.Feed.GenerateFeed(r.Context(), baseURL)
	if err != nil {
		s.logger.Error("Error generating feed", "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("Error converting feed to RSS", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>VFS Global Tracker</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #333; }
        .info { background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 20px 0; }
        code { background: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>VFS Global Tracker</h1>
    <div class="info">
        <p>Pick a country with <code>PUT /api/country/{code}</code>, toggle offices with
        <code>POST /api/offices/{office}/toggle</code> and start with <code>POST /api/monitoring/start</code>.
        <code>POST /api/monitoring/scan</code> runs one scan right away.</p>
        <p>Dashboard counters: <code>/api/stats</code>. Scan history feed: <code>/rss</code>.</p>
    </div>
    <p><a href="/health">Health Check</a></p>
</body>
</html>`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (s *Server) countries() countriesResponse {
	active := s.services.Selection.Country()
	return countriesResponse{
		Countries: lo.Map(s.services.Selection.Countries(), func(c countryDomain.Country, _ int) countryView {
			return countryView{
				Code:        c.Code,
				DisplayName: c.DisplayName,
				Offices:     c.Offices,
				Active:      c.Code == active.Code,
			}
		}),
		SelectedOffices: s.services.Selection.Offices(),
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": apperrors.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
