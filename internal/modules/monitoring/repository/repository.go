package repository

import (
	"context"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
)

// Repository defines the interface for scan history persistence
// (FileStorage, SQLiteStorage and PostgresStorage implement it).
type Repository interface {
	SaveRecord(ctx context.Context, record *domain.ScanRecord) error
	GetRecentRecords(ctx context.Context, limit int) ([]*domain.ScanRecord, error)
	Close() error
}
