package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scan_records (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    country TEXT NOT NULL,
    offices TEXT NOT NULL,
    scanned_at TIMESTAMPTZ NOT NULL,
    appointments_found INTEGER NOT NULL,
    appointments TEXT NOT NULL DEFAULT '[]',
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scan_records_scanned_at ON scan_records(scanned_at DESC);
`

// PostgresStorage implements Repository on a pgx connection pool
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to url and creates the schema
func NewPostgresStorage(ctx context.Context, url string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, oops.With("context", "failed to create postgres pool").Wrap(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, oops.With("context", "failed to reach postgres").Wrap(err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, oops.With("context", "failed to create schema").Wrap(err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) SaveRecord(ctx context.Context, record *domain.ScanRecord) error {
	offices, appointments, err := encodeLists(record)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO scan_records (id, run_id, country, offices, scanned_at, appointments_found, appointments, error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID,
		record.RunID,
		record.Country,
		offices,
		record.ScannedAt,
		record.AppointmentsFound,
		appointments,
		record.Error,
	)
	if err != nil {
		return oops.With("record_id", record.ID, "context", "failed to insert scan record").Wrap(err)
	}
	return nil
}

func (s *PostgresStorage) GetRecentRecords(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, run_id, country, offices, scanned_at, appointments_found, appointments, error
        FROM scan_records
        ORDER BY scanned_at DESC
        LIMIT $1`, limit)
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
		)
		if err := rows.Scan(&record.ID, &record.RunID, &record.Country, &offices, &record.ScannedAt,
			&record.AppointmentsFound, &appointments, &record.Error); err != nil {
			return nil, oops.With("context", "failed to scan record row").Wrap(err)
		}
		if err := decodeLists(&record, offices, appointments); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
