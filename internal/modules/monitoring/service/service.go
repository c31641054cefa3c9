package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"github.com/samber/oops"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/repository"
	notificationDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/domain"
	notificationService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/service"
	selectionDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/selection/domain"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

const historyWriteTimeout = 5 * time.Second

// SelectionReader is the part of the selection model the session reads.
type SelectionReader interface {
	Snapshot() selectionDomain.Selection
	Country() countryDomain.Country
}

// Options configures a Service.
type Options struct {
	ScanIntervalSeconds int
	// PauseOnAppointment returns the session to idle after a scan that
	// found appointments, so the operator can book by hand.
	PauseOnAppointment bool
	// StatusReportEvery emits an info notification every N scans; 0 disables it.
	StatusReportEvery int
	Clock             clockwork.Clock
}

// run is one Start..Stop cycle of the scan loop.
type run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Service is the monitoring session: a two-state machine (idle, running)
// driving a periodic scan loop.
//
// While running, a single goroutine owns the timer. The next tick is armed
// only after the previous scan returned, so scans never overlap. Stop flips
// the state and cancels the run under the session lock and then waits for the
// loop to exit; a tick re-checks the run's context under the same lock before
// mutating counters, so nothing changes after Stop returns.
//
// scanMu serializes scanner calls between ticks and ScanNow. It is always
// taken before mu.
type Service struct {
	selection          SelectionReader
	scanner            domain.Scanner
	history            repository.Repository
	notifier           notificationService.Sink
	clock              clockwork.Clock
	pauseOnAppointment bool
	statusReportEvery  int

	scanMu sync.Mutex

	mu                sync.Mutex
	version           uint64
	status            domain.Status
	interval          int
	totalScans        int
	successfulScans   int
	failedScans       int
	lastScanAt        time.Time
	appointmentsFound int
	offices           map[string]domain.OfficeStats
	startedAt         time.Time
	run               *run
	listeners         []func(domain.Snapshot)
}

// New creates an idle session.
func New(selection SelectionReader, scanner domain.Scanner, history repository.Repository, notifier notificationService.Sink, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		selection:          selection,
		scanner:            scanner,
		history:            history,
		notifier:           notifier,
		clock:              clock,
		pauseOnAppointment: opts.PauseOnAppointment,
		statusReportEvery:  opts.StatusReportEvery,
		status:             domain.StatusIdle,
		interval:           opts.ScanIntervalSeconds,
		offices:            make(map[string]domain.OfficeStats),
	}
}

// Subscribe registers fn to receive a snapshot after every state change and
// every tick. fn runs on the scan loop goroutine and must not call Stop.
func (s *Service) Subscribe(fn func(domain.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a copy of the session state.
func (s *Service) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetScanInterval changes the cadence. The value is checked against
// [MinScanIntervalSeconds, MaxScanIntervalSeconds] by Start; a running
// session rejects out-of-range values and applies valid ones from the next tick.
func (s *Service) SetScanInterval(ctx context.Context, seconds int) error {
	inRange := seconds >= domain.MinScanIntervalSeconds && seconds <= domain.MaxScanIntervalSeconds

	s.mu.Lock()
	if !inRange && s.status == domain.StatusRunning {
		s.mu.Unlock()
		err := intervalError(seconds)
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, apperrors.Message(err))
		return err
	}
	s.interval = seconds
	snap, listeners := s.changedLocked()
	s.mu.Unlock()

	if !inRange {
		slog.Warn("Scan interval outside supported range; start will be rejected",
			"seconds", seconds, "min", domain.MinScanIntervalSeconds, "max", domain.MaxScanIntervalSeconds)
	}
	publish(listeners, snap)
	return nil
}

// Start moves the session from idle to running and schedules the first tick
// one interval from now.
func (s *Service) Start(ctx context.Context) error {
	selection := s.selection.Snapshot()
	country := s.selection.Country()

	s.mu.Lock()
	if s.status == domain.StatusRunning {
		runID := s.run.id
		s.mu.Unlock()
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, apperrors.ErrAlreadyRunning.Error())
		return oops.With("run_id", runID).Wrap(apperrors.ErrAlreadyRunning)
	}

	err := validateSelection(selection, country)
	if err == nil && (s.interval < domain.MinScanIntervalSeconds || s.interval > domain.MaxScanIntervalSeconds) {
		err = intervalError(s.interval)
	}
	if err != nil {
		s.mu.Unlock()
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, apperrors.Message(err))
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:     uuid.NewString(),
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.run = r
	s.status = domain.StatusRunning
	s.startedAt = s.clock.Now()
	timer := s.clock.NewTimer(s.intervalLocked())
	snap, listeners := s.changedLocked()
	s.mu.Unlock()

	go s.loop(r, timer)

	slog.Info("Monitoring started",
		"run_id", r.id,
		"country", selection.Country,
		"offices", selection.Offices,
		"interval_seconds", snap.ScanIntervalSeconds,
	)
	notificationService.Notify(ctx, s.notifier, notificationDomain.SeveritySuccess, "monitoring started")
	publish(listeners, snap)
	return nil
}

// Stop returns the session to idle and waits for the scan loop to exit.
// Calling Stop on an idle session is a no-op.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.status != domain.StatusRunning {
		s.mu.Unlock()
		return
	}
	r := s.run
	s.status = domain.StatusIdle
	s.run = nil
	r.cancel()
	snap, listeners := s.changedLocked()
	s.mu.Unlock()

	<-r.done

	slog.Info("Monitoring stopped",
		"run_id", r.id,
		"total_scans", snap.TotalScans,
		"appointments_found", snap.AppointmentsFound,
	)
	notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityInfo, "monitoring stopped")
	publish(listeners, snap)
}

func validateSelection(selection selectionDomain.Selection, country countryDomain.Country) error {
	if selection.Empty() {
		return apperrors.Validation("selection", "select at least one office before starting", "country", selection.Country)
	}

	foreign := lo.Reject(selection.Offices, func(id string, _ int) bool {
		return country.HasOffice(id)
	})
	if len(foreign) > 0 {
		return apperrors.Validation("selection",
			fmt.Sprintf("offices %v are not served for %s", foreign, country.DisplayName),
			"country", country.Code, "offices", foreign)
	}

	return nil
}

func (s *Service) loop(r *run, timer clockwork.Timer) {
	defer close(r.done)

	for {
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case firedAt := <-timer.Chan():
			next, ok := s.tick(r, firedAt)
			if !ok {
				return
			}
			timer = next
		}
	}
}

// tick performs one scan pass. It returns the timer for the following tick,
// or false when the run is over.
func (s *Service) tick(r *run, firedAt time.Time) (clockwork.Timer, bool) {
	s.scanMu.Lock()
	if r.ctx.Err() != nil {
		s.scanMu.Unlock()
		return nil, false
	}

	selection := s.selection.Snapshot()
	result, scanErr := s.scanner.Scan(r.ctx, selection.Country, selection.Offices)

	s.mu.Lock()
	if r.ctx.Err() != nil {
		s.mu.Unlock()
		s.scanMu.Unlock()
		slog.Debug("Discarding scan of a stopped run", "run_id", r.id)
		return nil, false
	}

	found := s.recordScanLocked(selection, result, scanErr, firedAt)
	paused := found > 0 && s.pauseOnAppointment
	var next clockwork.Timer
	if paused {
		s.status = domain.StatusIdle
		s.run = nil
		r.cancel()
	} else {
		next = s.clock.NewTimer(s.intervalLocked())
	}
	snap, listeners := s.changedLocked()
	s.mu.Unlock()
	s.scanMu.Unlock()

	s.report(r.id, selection, result, scanErr, firedAt, paused)

	if s.statusReportEvery > 0 && snap.TotalScans%s.statusReportEvery == 0 {
		notificationService.Notify(context.Background(), s.notifier, notificationDomain.SeverityInfo, fmt.Sprintf(
			"status: %d scans, %d appointments found, running since %s",
			snap.TotalScans, snap.AppointmentsFound, snap.StartedAt.Format("02/01/2006 15:04:05")))
	}

	publish(listeners, snap)
	return next, !paused
}

// ScanNow runs one scan outside the schedule. It waits for an in-flight
// tick instead of overlapping it and counts like a tick. A scan that finds
// appointments pauses a running session when pause on appointment is set.
func (s *Service) ScanNow(ctx context.Context) (domain.ScanResult, error) {
	s.scanMu.Lock()

	selection := s.selection.Snapshot()
	if err := validateSelection(selection, s.selection.Country()); err != nil {
		s.scanMu.Unlock()
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, apperrors.Message(err))
		return domain.ScanResult{}, err
	}

	result, scanErr := s.scanner.Scan(ctx, selection.Country, selection.Offices)
	scannedAt := s.clock.Now()

	s.mu.Lock()
	found := s.recordScanLocked(selection, result, scanErr, scannedAt)
	runID := ""
	paused := false
	if r := s.run; r != nil {
		runID = r.id
		if found > 0 && s.pauseOnAppointment {
			paused = true
			s.status = domain.StatusIdle
			s.run = nil
			r.cancel()
		}
	}
	snap, listeners := s.changedLocked()
	s.mu.Unlock()
	s.scanMu.Unlock()

	slog.Info("Manual scan", "run_id", runID, "country", selection.Country, "found", found, "error", scanErr)
	s.report(runID, selection, result, scanErr, scannedAt, paused)
	publish(listeners, snap)

	if scanErr != nil {
		return domain.ScanResult{}, oops.With("country", selection.Country, "offices", selection.Offices).Wrap(scanErr)
	}
	return result, nil
}

// recordScanLocked folds one scan outcome into the counters and returns the
// number of appointments it contributed.
func (s *Service) recordScanLocked(selection selectionDomain.Selection, result domain.ScanResult, scanErr error, at time.Time) int {
	found := 0
	if scanErr == nil {
		found = result.Found()
		s.successfulScans++
	} else {
		s.failedScans++
	}
	s.totalScans++
	s.lastScanAt = at
	s.appointmentsFound += found

	perOffice := lo.CountValuesBy(result.Appointments, func(a domain.Appointment) string {
		return countryDomain.NormalizeOffice(a.Office)
	})
	for _, id := range selection.Offices {
		office := s.offices[id]
		office.TotalChecks++
		office.LastCheck = at
		if scanErr == nil {
			office.SuccessfulChecks++
			office.LastSuccess = at
			office.AppointmentsFound += perOffice[id]
		}
		s.offices[id] = office
	}
	return found
}

// report persists the scan record and emits the outcome notifications.
func (s *Service) report(runID string, selection selectionDomain.Selection, result domain.ScanResult, scanErr error, at time.Time, paused bool) {
	record := &domain.ScanRecord{
		ID:                uuid.NewString(),
		RunID:             runID,
		Country:           selection.Country,
		Offices:           selection.Offices,
		ScannedAt:         at,
		AppointmentsFound: result.Found(),
		Appointments:      result.Appointments,
	}
	if scanErr != nil {
		record.Error = scanErr.Error()
		record.Appointments = nil
		record.AppointmentsFound = 0
	}
	s.saveRecord(record)

	ctx := context.Background()
	switch {
	case scanErr != nil:
		slog.Error("Scan failed", "run_id", runID, "country", selection.Country, "error", scanErr)
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, "scan failed: "+scanErr.Error())
	case result.Found() > 0:
		slog.Info("Appointments found", "run_id", runID, "count", result.Found(), "appointments", result.Appointments)
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeveritySuccess, describeAppointments(result.Appointments))
	default:
		slog.Debug("Scan completed", "run_id", runID)
	}

	if paused {
		slog.Warn("Monitoring paused, user intervention required for booking", "run_id", runID)
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityInfo, "monitoring paused: book the appointment and start again")
	}
}

func (s *Service) saveRecord(record *domain.ScanRecord) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := s.history.SaveRecord(ctx, record); err != nil {
		slog.Error("Failed to save scan record", "record_id", record.ID, "run_id", record.RunID, "error", err)
	}
}

func (s *Service) intervalLocked() time.Duration {
	return time.Duration(s.interval) * time.Second
}

// changedLocked marks a state change and returns what to publish.
func (s *Service) changedLocked() (domain.Snapshot, []func(domain.Snapshot)) {
	s.version++
	return s.snapshotLocked(), slices.Clone(s.listeners)
}

func (s *Service) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Version:             s.version,
		Status:              s.status,
		ScanIntervalSeconds: s.interval,
		TotalScans:          s.totalScans,
		SuccessfulScans:     s.successfulScans,
		FailedScans:         s.failedScans,
		LastScanAt:          s.lastScanAt,
		AppointmentsFound:   s.appointmentsFound,
		Offices:             maps.Clone(s.offices),
		StartedAt:           s.startedAt,
	}
	if s.run != nil {
		snap.RunID = s.run.id
	}
	return snap
}

func publish(listeners []func(domain.Snapshot), snap domain.Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

func intervalError(seconds int) error {
	return apperrors.Validation("scan_interval",
		fmt.Sprintf("scan interval must be between %d and %d seconds", domain.MinScanIntervalSeconds, domain.MaxScanIntervalSeconds),
		"seconds", seconds)
}

func describeAppointments(appointments []domain.Appointment) string {
	slots := lo.Map(appointments, func(a domain.Appointment, _ int) string {
		return strings.TrimSpace(fmt.Sprintf("%s %s %s", a.Office, a.Date, a.Time))
	})
	return fmt.Sprintf("%d appointment(s) found: %s", len(appointments), strings.Join(slots, ", "))
}
