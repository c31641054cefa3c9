package repository

import (
	"context"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/settings/domain"
)

// Repository persists the settings snapshot.
type Repository interface {
	// Load returns the stored settings. ok is false when nothing was saved yet.
	Load(ctx context.Context) (settings domain.Settings, ok bool, err error)
	Save(ctx context.Context, settings domain.Settings) error
}
