package service

import (
	"maps"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	monitoringDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
	selectionDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/selection/domain"
)

// LastScanPlaceholder is shown until the first tick completes.
const LastScanPlaceholder = "--:--"

const lastScanLayout = "15:04:05"

// Stats is the read-only dashboard projection.
type Stats struct {
	Status              monitoringDomain.Status `json:"status"`
	Country             string                  `json:"country"`
	ScanIntervalSeconds int                     `json:"scan_interval_seconds"`
	TotalScans          int                     `json:"total_scans"`
	SuccessfulScans     int                     `json:"successful_scans"`
	FailedScans         int                     `json:"failed_scans"`
	SuccessRate         float64                 `json:"success_rate"`
	LastScan            string                  `json:"last_scan"`
	AppointmentsFound   int                     `json:"appointments_found"`
	ActiveOfficeCount   int                     `json:"active_office_count"`
	StartedAt           time.Time               `json:"started_at,omitzero"`
	// UptimeSeconds is measured from StartedAt while running and is 0 when idle.
	UptimeSeconds int64                                    `json:"uptime_seconds"`
	Offices       map[string]monitoringDomain.OfficeStats `json:"offices,omitempty"`
}

// SessionSource is the monitoring session as seen by the aggregator.
// Subscribe callbacks only signal a change; the aggregator re-reads Snapshot.
type SessionSource interface {
	Snapshot() monitoringDomain.Snapshot
	Subscribe(fn func(monitoringDomain.Snapshot))
}

// SelectionSource is the office selection as seen by the aggregator.
type SelectionSource interface {
	Snapshot() selectionDomain.Selection
	Subscribe(fn func())
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for uptime.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// Service keeps Stats current by recomputing it on every session event
// and every selection change.
//
// Session listeners can run in any order relative to each other and to
// later state changes, so each recompute reads the session again and keeps
// whichever snapshot carries the higher version.
type Service struct {
	session   SessionSource
	selection SelectionSource
	location  *time.Location
	clock     clockwork.Clock
	mu        sync.RWMutex
	applied   monitoringDomain.Snapshot
	current   Stats
}

// New creates the aggregator and subscribes it to both sources. Times are
// rendered in loc (time.Local when nil).
func New(session SessionSource, selection SelectionSource, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		session:   session,
		selection: selection,
		location:  loc,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	session.Subscribe(func(monitoringDomain.Snapshot) {
		s.refresh()
	})
	selection.Subscribe(s.refresh)
	s.refresh()
	return s
}

// Current returns the latest projection.
func (s *Service) Current() Stats {
	s.mu.RLock()
	stats := s.current
	stats.Offices = maps.Clone(s.current.Offices)
	s.mu.RUnlock()

	if stats.Status == monitoringDomain.StatusRunning && !stats.StartedAt.IsZero() {
		stats.UptimeSeconds = int64(s.clock.Since(stats.StartedAt) / time.Second)
	}
	return stats
}

func (s *Service) refresh() {
	s.recompute(s.session.Snapshot(), s.selection.Snapshot())
}

func (s *Service) recompute(snap monitoringDomain.Snapshot, selection selectionDomain.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Version < s.applied.Version {
		snap = s.applied
	}
	s.applied = snap

	stats := Stats{
		Status:              snap.Status,
		Country:             selection.Country,
		ScanIntervalSeconds: snap.ScanIntervalSeconds,
		TotalScans:          snap.TotalScans,
		SuccessfulScans:     snap.SuccessfulScans,
		FailedScans:         snap.FailedScans,
		SuccessRate:         snap.SuccessRate(),
		LastScan:            FormatLastScan(snap.LastScanAt, s.location),
		AppointmentsFound:   snap.AppointmentsFound,
		ActiveOfficeCount:   len(selection.Offices),
		Offices:             snap.Offices,
	}
	if snap.Status == monitoringDomain.StatusRunning {
		stats.StartedAt = snap.StartedAt
	}
	s.current = stats
}

// FormatLastScan renders t as local wall-clock time, or the placeholder when zero.
func FormatLastScan(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return LastScanPlaceholder
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(lastScanLayout)
}
