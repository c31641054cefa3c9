package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/samber/oops"
	_ "modernc.org/sqlite"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan_records (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    country TEXT NOT NULL,
    offices TEXT NOT NULL,
    scanned_at INTEGER NOT NULL,
    appointments_found INTEGER NOT NULL,
    appointments TEXT NOT NULL DEFAULT '[]',
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scan_records_scanned_at ON scan_records(scanned_at);
`

// SQLiteStorage implements Repository on an embedded SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database at dsn and creates the schema
func NewSQLiteStorage(ctx context.Context, dsn string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.With("dsn", dsn, "context", "failed to open sqlite database").Wrap(err)
	}
	// Single writer keeps SQLite free of "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, oops.With("dsn", dsn, "context", "failed to create schema").Wrap(err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) SaveRecord(ctx context.Context, record *domain.ScanRecord) error {
	offices, appointments, err := encodeLists(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO scan_records (id, run_id, country, offices, scanned_at, appointments_found, appointments, error)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.RunID,
		record.Country,
		offices,
		record.ScannedAt.UnixNano(),
		record.AppointmentsFound,
		appointments,
		record.Error,
	)
	if err != nil {
		return oops.With("record_id", record.ID, "context", "failed to insert scan record").Wrap(err)
	}
	return nil
}

func (s *SQLiteStorage) GetRecentRecords(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, run_id, country, offices, scanned_at, appointments_found, appointments, error
        FROM scan_records
        ORDER BY scanned_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, oops.With("context", "failed to query scan records").Wrap(err)
	}
	defer rows.Close()

	records := []*domain.ScanRecord{}
	for rows.Next() {
		var (
			record       domain.ScanRecord
			offices      string
			appointments string
			scannedAt    int64
		)
		if err := rows.Scan(&record.ID, &record.RunID, &record.Country, &offices, &scannedAt,
			&record.AppointmentsFound, &appointments, &record.Error); err != nil {
			return nil, oops.With("context", "failed to scan record row").Wrap(err)
		}
		record.ScannedAt = time.Unix(0, scannedAt).UTC()
		if err := decodeLists(&record, offices, appointments); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func encodeLists(record *domain.ScanRecord) (string, string, error) {
	offices, err := json.Marshal(record.Offices)
	if err != nil {
		return "", "", oops.With("record_id", record.ID, "context", "failed to marshal offices").Wrap(err)
	}
	appointments := record.Appointments
	if appointments == nil {
		appointments = []domain.Appointment{}
	}
	encoded, err := json.Marshal(appointments)
	if err != nil {
		return "", "", oops.With("record_id", record.ID, "context", "failed to marshal appointments").Wrap(err)
	}
	return string(offices), string(encoded), nil
}

func decodeLists(record *domain.ScanRecord, offices, appointments string) error {
	if err := json.Unmarshal([]byte(offices), &record.Offices); err != nil {
		return oops.With("record_id", record.ID, "context", "failed to unmarshal offices").Wrap(err)
	}
	if err := json.Unmarshal([]byte(appointments), &record.Appointments); err != nil {
		return oops.With("record_id", record.ID, "context", "failed to unmarshal appointments").Wrap(err)
	}
	if len(record.Appointments) == 0 {
		record.Appointments = nil
	}
	return nil
}
