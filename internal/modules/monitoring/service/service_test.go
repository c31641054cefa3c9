package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
	notificationDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/domain"
	notificationService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/service"
	selectionService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/selection/service"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

var reference = time.Date(2026, time.February, 17, 9, 0, 0, 0, time.UTC)

type historyStub struct {
	mu      sync.Mutex
	records []*domain.ScanRecord
}

func (h *historyStub) SaveRecord(_ context.Context, record *domain.ScanRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
	return nil
}

func (h *historyStub) GetRecentRecords(_ context.Context, limit int) ([]*domain.ScanRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records, nil
}

func (h *historyStub) Close() error { return nil }

func (h *historyStub) all() []*domain.ScanRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*domain.ScanRecord(nil), h.records...)
}

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, n int) error
}

type harness struct {
	svc       *Service
	clock     fakeClock
	selection *selectionService.Service
	notes     *notificationService.Recorder
	history   *historyStub
	snaps     chan domain.Snapshot
}

func newHarness(t *testing.T, scanner domain.Scanner, opts Options) *harness {
	t.Helper()

	notes := notificationService.NewRecorder(50)
	selection, err := selectionService.New(countryDomain.DefaultCatalog(), "netherlands", nil)
	if err != nil {
		t.Fatalf("selection: %v", err)
	}
	if scanner == nil {
		scanner = NewIdleScanner(nil)
	}
	if opts.ScanIntervalSeconds == 0 {
		opts.ScanIntervalSeconds = 300
	}
	clock := clockwork.NewFakeClockAt(reference)
	opts.Clock = clock

	h := &harness{
		clock:     clock,
		selection: selection,
		notes:     notes,
		history:   &historyStub{},
		snaps:     make(chan domain.Snapshot, 64),
	}
	h.svc = New(selection, scanner, h.history, notes, opts)
	h.svc.Subscribe(func(s domain.Snapshot) {
		select {
		case h.snaps <- s:
		default:
		}
	})
	t.Cleanup(func() { h.svc.Stop(context.Background()) })
	return h
}

func (h *harness) selectOffices(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := h.selection.ToggleOffice(context.Background(), name); err != nil {
			t.Fatalf("toggle %s: %v", name, err)
		}
	}
}

// elapse waits for the loop to arm its timer and then moves the clock.
func (h *harness) elapse(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("scan loop never armed its timer: %v", err)
	}
	h.clock.Advance(d)
}

func (h *harness) waitForScans(t *testing.T, n int) domain.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-h.snaps:
			if snap.TotalScans >= n {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d scans, have %d", n, h.svc.Snapshot().TotalScans)
		}
	}
}

func (h *harness) lastNote(t *testing.T) notificationDomain.Notification {
	t.Helper()
	n, ok := h.notes.Last()
	if !ok {
		t.Fatal("expected a notification")
	}
	return n
}

func TestStartRequiresSelection(t *testing.T) {
	h := newHarness(t, nil, Options{})

	err := h.svc.Start(context.Background())
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := h.svc.Snapshot().Status; got != domain.StatusIdle {
		t.Fatalf("status = %s, want idle", got)
	}
	note := h.lastNote(t)
	if note.Severity != notificationDomain.SeverityError || note.Message != "select at least one office before starting" {
		t.Fatalf("unexpected notification %+v", note)
	}

	h.clock.Advance(time.Hour)
	if snap := h.svc.Snapshot(); snap.TotalScans != 0 || snap.HasScanned() {
		t.Fatalf("no tick may run without a start: %+v", snap)
	}
}

func TestScanLifecycle(t *testing.T) {
	var (
		mu    sync.Mutex
		calls [][]string
	)
	scanner := domain.ScannerFunc(func(_ context.Context, country string, offices []string) (domain.ScanResult, error) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, offices)
		return domain.ScanResult{}, nil
	})
	h := newHarness(t, scanner, Options{ScanIntervalSeconds: 300})
	h.selectOffices(t, "Ankara", "İstanbul")
	ctx := context.Background()

	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if snap := h.svc.Snapshot(); snap.Status != domain.StatusRunning || snap.RunID == "" {
		t.Fatalf("unexpected snapshot after start: %+v", snap)
	}
	if note := h.lastNote(t); note.Severity != notificationDomain.SeveritySuccess || note.Message != "monitoring started" {
		t.Fatalf("unexpected notification %+v", note)
	}

	h.elapse(t, 300*time.Second)
	snap := h.waitForScans(t, 1)
	if snap.TotalScans != 1 {
		t.Fatalf("TotalScans = %d, want 1", snap.TotalScans)
	}
	if want := reference.Add(300 * time.Second); !snap.LastScanAt.Equal(want) {
		t.Fatalf("LastScanAt = %v, want %v", snap.LastScanAt, want)
	}

	h.svc.Stop(ctx)
	if got := h.svc.Snapshot().Status; got != domain.StatusIdle {
		t.Fatalf("status = %s, want idle", got)
	}
	if note := h.lastNote(t); note.Severity != notificationDomain.SeverityInfo || note.Message != "monitoring stopped" {
		t.Fatalf("unexpected notification %+v", note)
	}

	h.clock.Advance(300 * time.Second)
	after := h.svc.Snapshot()
	if after.TotalScans != 1 || !after.LastScanAt.Equal(snap.LastScanAt) {
		t.Fatalf("tick mutated a stopped session: %+v", after)
	}

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(calls, [][]string{{"ankara", "istanbul"}}) {
		t.Fatalf("unexpected scanner calls %v", calls)
	}
	if records := h.history.all(); len(records) != 1 || records[0].RunID != snap.RunID {
		t.Fatalf("expected one history record for run %s, got %+v", snap.RunID, records)
	}
}

func TestStartWhileRunning(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.selectOffices(t, "ankara")
	ctx := context.Background()

	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runID := h.svc.Snapshot().RunID

	if err := h.svc.Start(ctx); !errors.Is(err, apperrors.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if snap := h.svc.Snapshot(); snap.Status != domain.StatusRunning || snap.RunID != runID {
		t.Fatalf("second start disturbed the run: %+v", snap)
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t, nil, Options{})

	h.svc.Stop(context.Background())

	if _, ok := h.notes.Last(); ok {
		t.Fatal("idle stop must not notify")
	}
	if got := h.svc.Snapshot().Status; got != domain.StatusIdle {
		t.Fatalf("status = %s", got)
	}
}

func TestScanIntervalBounds(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.selectOffices(t, "ankara")
	ctx := context.Background()

	for _, seconds := range []int{0, 59, 3601} {
		if err := h.svc.SetScanInterval(ctx, seconds); err != nil {
			t.Fatalf("idle SetScanInterval(%d): %v", seconds, err)
		}
		if err := h.svc.Start(ctx); !apperrors.IsValidation(err) {
			t.Fatalf("Start with interval %d: expected validation error, got %v", seconds, err)
		}
		if got := h.svc.Snapshot().Status; got != domain.StatusIdle {
			t.Fatalf("status = %s after rejected start", got)
		}
	}

	if err := h.svc.SetScanInterval(ctx, 60); err != nil {
		t.Fatalf("SetScanInterval(60): %v", err)
	}
	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.svc.SetScanInterval(ctx, 10); !apperrors.IsValidation(err) {
		t.Fatalf("running session must reject out-of-range interval, got %v", err)
	}
	if err := h.svc.SetScanInterval(ctx, 3600); err != nil {
		t.Fatalf("SetScanInterval(3600): %v", err)
	}

	// The armed timer keeps its 60s cadence; the new interval applies afterwards.
	h.elapse(t, 60*time.Second)
	h.waitForScans(t, 1)
	h.elapse(t, 60*time.Second)
	if got := h.svc.Snapshot().TotalScans; got != 1 {
		t.Fatalf("TotalScans = %d, new interval not applied", got)
	}
	h.clock.Advance(3540 * time.Second)
	h.waitForScans(t, 2)
}

func TestRestartUsesFreshRun(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.selectOffices(t, "istanbul")
	ctx := context.Background()

	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := h.svc.Snapshot().RunID
	h.elapse(t, 300*time.Second)
	h.waitForScans(t, 1)
	h.svc.Stop(ctx)

	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	second := h.svc.Snapshot().RunID
	if second == "" || second == first {
		t.Fatalf("restart reused run id %q", first)
	}

	// A partial interval must not fire: the old timer is gone.
	h.elapse(t, 299*time.Second)
	if got := h.svc.Snapshot().TotalScans; got != 1 {
		t.Fatalf("TotalScans = %d before the new interval elapsed", got)
	}
	h.clock.Advance(time.Second)
	if snap := h.waitForScans(t, 2); snap.RunID != second {
		t.Fatalf("tick attributed to run %q, want %q", snap.RunID, second)
	}
}

func TestStopDuringScanDiscardsResult(t *testing.T) {
	entered := make(chan struct{})
	scanner := domain.ScannerFunc(func(ctx context.Context, _ string, offices []string) (domain.ScanResult, error) {
		close(entered)
		<-ctx.Done()
		return domain.ScanResult{Appointments: []domain.Appointment{{Office: offices[0]}}}, nil
	})
	h := newHarness(t, scanner, Options{PauseOnAppointment: true})
	h.selectOffices(t, "ankara")
	ctx := context.Background()

	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.elapse(t, 300*time.Second)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner was never invoked")
	}

	h.svc.Stop(ctx)

	snap := h.svc.Snapshot()
	if snap.TotalScans != 0 || snap.AppointmentsFound != 0 || snap.HasScanned() {
		t.Fatalf("cancelled scan mutated the session: %+v", snap)
	}
	if len(h.history.all()) != 0 {
		t.Fatal("cancelled scan must not be recorded")
	}
}

func TestPauseOnAppointment(t *testing.T) {
	scanner := domain.ScannerFunc(func(context.Context, string, []string) (domain.ScanResult, error) {
		return domain.ScanResult{Appointments: []domain.Appointment{
			{Office: "istanbul", Date: "2026-03-02", Time: "10:30"},
		}}, nil
	})
	h := newHarness(t, scanner, Options{PauseOnAppointment: true})
	h.selectOffices(t, "istanbul")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.elapse(t, 300*time.Second)

	snap := h.waitForScans(t, 1)
	if snap.Status != domain.StatusIdle || snap.AppointmentsFound != 1 {
		t.Fatalf("expected paused session with one appointment, got %+v", snap)
	}

	notes := h.notes.Recent(0)
	if len(notes) < 2 {
		t.Fatalf("expected found + paused notifications, got %+v", notes)
	}
	if notes[0].Severity != notificationDomain.SeverityInfo || !strings.Contains(notes[0].Message, "paused") {
		t.Fatalf("unexpected pause notification %+v", notes[0])
	}
	if notes[1].Severity != notificationDomain.SeveritySuccess || notes[1].Message != "1 appointment(s) found: istanbul 2026-03-02 10:30" {
		t.Fatalf("unexpected appointment notification %+v", notes[1])
	}

	// Restarting after a pause is allowed.
	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("restart after pause: %v", err)
	}
}

func TestCountersAreMonotonic(t *testing.T) {
	results := []struct {
		found int
		err   error
	}{
		{found: 2},
		{err: errors.New("portal timeout")},
		{found: 0},
		{found: 1},
	}
	var (
		mu   sync.Mutex
		call int
	)
	scanner := domain.ScannerFunc(func(context.Context, string, []string) (domain.ScanResult, error) {
		mu.Lock()
		defer mu.Unlock()
		r := results[call%len(results)]
		call++
		if r.err != nil {
			return domain.ScanResult{}, r.err
		}
		return domain.ScanResult{Appointments: make([]domain.Appointment, r.found)}, nil
	})
	h := newHarness(t, scanner, Options{StatusReportEvery: 4})
	h.selectOffices(t, "ankara", "istanbul")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	prev := h.svc.Snapshot()
	for i := 1; i <= len(results); i++ {
		h.elapse(t, 300*time.Second)
		snap := h.waitForScans(t, i)
		if snap.TotalScans < prev.TotalScans || snap.AppointmentsFound < prev.AppointmentsFound {
			t.Fatalf("counters decreased: %+v -> %+v", prev, snap)
		}
		if !snap.LastScanAt.After(prev.LastScanAt) {
			t.Fatalf("LastScanAt did not advance: %v -> %v", prev.LastScanAt, snap.LastScanAt)
		}
		prev = snap
	}

	if prev.TotalScans != 4 || prev.AppointmentsFound != 3 || prev.Status != domain.StatusRunning {
		t.Fatalf("unexpected final snapshot %+v", prev)
	}
	if prev.SuccessfulScans != 3 || prev.FailedScans != 1 || prev.SuccessRate() != 0.75 {
		t.Fatalf("unexpected success counters %+v", prev)
	}
	ankara := prev.Offices["ankara"]
	if ankara.TotalChecks != 4 || ankara.SuccessfulChecks != 3 || !ankara.LastCheck.Equal(prev.LastScanAt) {
		t.Fatalf("unexpected office stats %+v", ankara)
	}

	records := h.history.all()
	if len(records) != 4 || records[1].Succeeded() || records[1].Error != "portal timeout" {
		t.Fatalf("unexpected history %+v", records)
	}

	note := h.lastNote(t)
	if note.Severity != notificationDomain.SeverityInfo || !strings.HasPrefix(note.Message, "status: 4 scans, 3 appointments found") {
		t.Fatalf("expected status report, got %+v", note)
	}
}

func TestScanNowCountsPerOffice(t *testing.T) {
	scanner := domain.ScannerFunc(func(context.Context, string, []string) (domain.ScanResult, error) {
		return domain.ScanResult{Appointments: []domain.Appointment{
			{Office: "İstanbul", Date: "2026-03-02", Time: "10:30"},
			{Office: "istanbul", Date: "2026-03-04", Time: "09:00"},
		}}, nil
	})
	h := newHarness(t, scanner, Options{})
	h.selectOffices(t, "ankara", "istanbul")

	result, err := h.svc.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("ScanNow: %v", err)
	}
	if result.Found() != 2 {
		t.Fatalf("Found = %d, want 2", result.Found())
	}

	snap := h.svc.Snapshot()
	if snap.Status != domain.StatusIdle || snap.TotalScans != 1 || snap.SuccessfulScans != 1 || snap.AppointmentsFound != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.LastScanAt.Equal(reference) {
		t.Fatalf("LastScanAt = %v, want %v", snap.LastScanAt, reference)
	}
	want := map[string]domain.OfficeStats{
		"ankara":   {TotalChecks: 1, SuccessfulChecks: 1, LastCheck: reference, LastSuccess: reference},
		"istanbul": {TotalChecks: 1, SuccessfulChecks: 1, AppointmentsFound: 2, LastCheck: reference, LastSuccess: reference},
	}
	if !reflect.DeepEqual(snap.Offices, want) {
		t.Fatalf("Offices = %+v, want %+v", snap.Offices, want)
	}
	if records := h.history.all(); len(records) != 1 || records[0].RunID != "" || records[0].AppointmentsFound != 2 {
		t.Fatalf("unexpected history %+v", records)
	}
}

func TestScanNowRequiresSelection(t *testing.T) {
	h := newHarness(t, nil, Options{})

	if _, err := h.svc.ScanNow(context.Background()); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if snap := h.svc.Snapshot(); snap.TotalScans != 0 {
		t.Fatalf("rejected scan was counted: %+v", snap)
	}
}

func TestScanNowFailureIsCounted(t *testing.T) {
	scanner := domain.ScannerFunc(func(context.Context, string, []string) (domain.ScanResult, error) {
		return domain.ScanResult{}, errors.New("portal timeout")
	})
	h := newHarness(t, scanner, Options{})
	h.selectOffices(t, "ankara")

	if _, err := h.svc.ScanNow(context.Background()); err == nil || !strings.Contains(err.Error(), "portal timeout") {
		t.Fatalf("expected scanner error, got %v", err)
	}
	snap := h.svc.Snapshot()
	if snap.TotalScans != 1 || snap.FailedScans != 1 || snap.SuccessRate() != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if office := snap.Offices["ankara"]; office.TotalChecks != 1 || office.SuccessfulChecks != 0 || !office.LastSuccess.IsZero() {
		t.Fatalf("unexpected office stats %+v", office)
	}
}

func TestScanNowWaitsForRunningTick(t *testing.T) {
	var (
		mu       sync.Mutex
		inflight int
		peak     int
		calls    int
	)
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	scanner := domain.ScannerFunc(func(context.Context, string, []string) (domain.ScanResult, error) {
		mu.Lock()
		inflight++
		peak = max(peak, inflight)
		calls++
		first := calls == 1
		mu.Unlock()

		entered <- struct{}{}
		if first {
			<-release
		}

		mu.Lock()
		inflight--
		mu.Unlock()
		return domain.ScanResult{}, nil
	})
	h := newHarness(t, scanner, Options{})
	h.selectOffices(t, "ankara")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.elapse(t, 300*time.Second)
	<-entered

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.ScanNow(context.Background())
		done <- err
	}()

	select {
	case <-entered:
		t.Fatal("manual scan overlapped the running tick")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ScanNow: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manual scan never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if peak != 1 || calls != 2 {
		t.Fatalf("peak = %d, calls = %d", peak, calls)
	}
	if snap := h.svc.Snapshot(); snap.TotalScans != 2 || snap.Status != domain.StatusRunning {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestScanNowPausesRunningSession(t *testing.T) {
	scanner := domain.ScannerFunc(func(context.Context, string, []string) (domain.ScanResult, error) {
		return domain.ScanResult{Appointments: []domain.Appointment{{Office: "ankara"}}}, nil
	})
	h := newHarness(t, scanner, Options{PauseOnAppointment: true})
	h.selectOffices(t, "ankara")

	if err := h.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runID := h.svc.Snapshot().RunID
	if _, err := h.svc.ScanNow(context.Background()); err != nil {
		t.Fatalf("ScanNow: %v", err)
	}

	snap := h.svc.Snapshot()
	if snap.Status != domain.StatusIdle || snap.RunID != "" {
		t.Fatalf("expected paused session, got %+v", snap)
	}
	if records := h.history.all(); len(records) != 1 || records[0].RunID != runID {
		t.Fatalf("manual scan not attributed to run %s: %+v", runID, records)
	}

	h.clock.Advance(300 * time.Second)
	if got := h.svc.Snapshot().TotalScans; got != 1 {
		t.Fatalf("paused session kept ticking: %d scans", got)
	}
}

func TestSnapshotVersionAdvances(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.selectOffices(t, "ankara")
	ctx := context.Background()

	v0 := h.svc.Snapshot().Version
	if err := h.svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	v1 := h.svc.Snapshot().Version
	h.elapse(t, 300*time.Second)
	v2 := h.waitForScans(t, 1).Version
	h.svc.Stop(ctx)
	v3 := h.svc.Snapshot().Version

	if !(v0 < v1 && v1 < v2 && v2 < v3) {
		t.Fatalf("versions must increase with every change: %d %d %d %d", v0, v1, v2, v3)
	}
}
