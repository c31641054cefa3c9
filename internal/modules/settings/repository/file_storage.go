package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/domain"
)

// FileStorage implements Repository with a single settings.json file
type FileStorage struct {
	path   string
	sealer *Sealer
	mu     sync.Mutex
}

// NewFileStorage creates a file-based settings repository. A nil sealer
// stores secrets in clear text.
func NewFileStorage(basePath string, sealer *Sealer) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create settings directory").Wrap(err)
	}

	return &FileStorage{
		path:   filepath.Join(basePath, "settings.json"),
		sealer: sealer,
	}, nil
}

func (s *FileStorage) Load(_ context.Context) (domain.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Settings{}, false, nil
	}
	if err != nil {
		return domain.Settings{}, false, oops.With("path", s.path, "context", "failed to read settings").Wrap(err)
	}

	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return domain.Settings{}, false, oops.With("path", s.path, "context", "failed to unmarshal settings").Wrap(err)
	}

	if settings.VFSPassword, err = s.sealer.Open(settings.VFSPassword); err != nil {
		return domain.Settings{}, false, oops.With("field", "vfs_password").Wrap(err)
	}
	if settings.TelegramToken, err = s.sealer.Open(settings.TelegramToken); err != nil {
		return domain.Settings{}, false, oops.With("field", "telegram_token").Wrap(err)
	}

	return settings, true, nil
}

func (s *FileStorage) Save(_ context.Context, settings domain.Settings) error {
	var err error
	if settings.VFSPassword, err = s.sealer.Seal(settings.VFSPassword); err != nil {
		return err
	}
	if settings.TelegramToken, err = s.sealer.Seal(settings.TelegramToken); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal settings").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write then rename so a crash never leaves a half-written file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return oops.With("path", tmp, "context", "failed to write settings").Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return oops.With("path", s.path, "context", "failed to replace settings").Wrap(err)
	}
	return nil
}
