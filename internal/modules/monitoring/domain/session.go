package domain

import (
	"context"
	"time"
)

const (
	MinScanIntervalSeconds = 60
	MaxScanIntervalSeconds = 3600
)

// Snapshot is a read-only copy of the session state. Version grows with
// every state change, so consumers can tell a late snapshot from a fresh one.
type Snapshot struct {
	Version             uint64                 `json:"version"`
	Status              Status                 `json:"status"`
	RunID               string                 `json:"run_id,omitempty"`
	StartedAt           time.Time              `json:"started_at,omitzero"`
	ScanIntervalSeconds int                    `json:"scan_interval_seconds"`
	TotalScans          int                    `json:"total_scans"`
	SuccessfulScans     int                    `json:"successful_scans"`
	FailedScans         int                    `json:"failed_scans"`
	LastScanAt          time.Time              `json:"last_scan_at,omitzero"`
	AppointmentsFound   int                    `json:"appointments_found"`
	Offices             map[string]OfficeStats `json:"offices,omitempty"`
}

// HasScanned reports whether at least one tick has completed.
func (s Snapshot) HasScanned() bool {
	return !s.LastScanAt.IsZero()
}

// SuccessRate is the share of scans that returned without error, 1 before
// the first scan.
func (s Snapshot) SuccessRate() float64 {
	if s.TotalScans == 0 {
		return 1
	}
	return float64(s.SuccessfulScans) / float64(s.TotalScans)
}

// OfficeStats counts the checks of one office across all scans.
type OfficeStats struct {
	TotalChecks       int       `json:"total_checks"`
	SuccessfulChecks  int       `json:"successful_checks"`
	AppointmentsFound int       `json:"appointments_found"`
	LastCheck         time.Time `json:"last_check,omitzero"`
	LastSuccess       time.Time `json:"last_success,omitzero"`
}

// Appointment is a free slot reported by a scanner.
type Appointment struct {
	Office string `json:"office"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// ScanResult is the outcome of one pass over the selected offices.
type ScanResult struct {
	Appointments []Appointment `json:"appointments"`
	Details      string        `json:"details,omitempty"`
}

// Found returns the number of appointments in the result.
func (r ScanResult) Found() int {
	return len(r.Appointments)
}

// Scanner checks the selected offices of a country for free appointments.
type Scanner interface {
	Scan(ctx context.Context, countryCode string, offices []string) (ScanResult, error)
}

// ScanRecord is one entry of the scan history log.
type ScanRecord struct {
	ID                string        `json:"id"`
	RunID             string        `json:"run_id"`
	Country           string        `json:"country"`
	Offices           []string      `json:"offices"`
	ScannedAt         time.Time     `json:"scanned_at"`
	AppointmentsFound int           `json:"appointments_found"`
	Appointments      []Appointment `json:"appointments,omitempty"`
	Error             string        `json:"error,omitempty"`
}

// Succeeded reports whether the scanner returned without error.
func (r ScanRecord) Succeeded() bool {
	return r.Error == ""
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(ctx context.Context, countryCode string, offices []string) (ScanResult, error)

func (f ScannerFunc) Scan(ctx context.Context, countryCode string, offices []string) (ScanResult, error) {
	return f(ctx, countryCode, offices)
}
