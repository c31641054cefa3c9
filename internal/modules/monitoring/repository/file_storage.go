package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
)

// FileStorage implements Repository using one JSON file per record
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based scan history repository
func NewFileStorage(basePath string) (*FileStorage, error) {
	historyPath := filepath.Join(basePath, "history")
	if err := os.MkdirAll(historyPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create history directory").Wrap(err)
	}

	return &FileStorage{basePath: historyPath}, nil
}

func (s *FileStorage) SaveRecord(_ context.Context, record *domain.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Zero-padded timestamps keep directory order chronological.
	name := fmt.Sprintf("%020d-%s.json", record.ScannedAt.UnixNano(), record.ID)
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return oops.With("record_id", record.ID, "context", "failed to marshal scan record").Wrap(err)
	}

	if err := os.WriteFile(filepath.Join(s.basePath, name), data, 0644); err != nil {
		return oops.With("record_id", record.ID, "file", name, "context", "failed to write scan record").Wrap(err)
	}
	return nil
}

func (s *FileStorage) GetRecentRecords(_ context.Context, limit int) ([]*domain.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, oops.With("directory", s.basePath, "context", "failed to read history directory").Wrap(err)
	}

	records := []*domain.ScanRecord{}
	for i := len(entries) - 1; i >= 0 && len(records) < limit; i-- {
		entry := entries[i]
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			continue
		}

		var record domain.ScanRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}

		records = append(records, &record)
	}

	return records, nil
}

func (s *FileStorage) Close() error {
	return nil
}
